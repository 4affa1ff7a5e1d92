// Package visualiser renders filtered revolutions for people to look at.
//
// ChartSink keeps the latest revolution and serves it as an interactive
// go-echarts scatter. PlotSink writes one gonum/plot PNG per revolution.
// Both implement pipeline.Sink. Points are plotted in millimetres on axes
// fixed at ±MaxDistanceMM so successive revolutions line up.
package visualiser
