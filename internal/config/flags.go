package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags defines the server flags on fs. The returned function copies
// every flag the user set explicitly into a Config, leaving the rest alone.
func RegisterFlags(fs *pflag.FlagSet) func(*Config) {
	d := Default()

	listen := fs.String("listen", d.Listen, "HTTP listen address")
	staticDir := fs.String("static-dir", d.StaticDir, "directory of static files served at /")
	port := fs.StringP("port", "p", d.Port, "serial port of the adapter")
	baud := fs.IntP("baud", "b", d.Baud, "serial baud rate")
	autoConnect := fs.Bool("auto-connect", d.AutoConnect, "connect to --port at startup")
	autoSniff := fs.Bool("auto-sniff", d.AutoSniff, "start sniffing after the startup connect")
	simulate := fs.Bool("simulate", d.Simulate, "use a loopback simulated adapter instead of serial ports")
	readTimeout := fs.Duration("read-timeout", d.ReadTimeout, "transport read timeout")
	ringCapacity := fs.Int("ring-capacity", d.RingCapacity, "number of recent frames kept")
	subscriberBuffer := fs.Int("subscriber-buffer", d.SubscriberBuffer, "frames buffered per subscriber before it is dropped")
	outboxSize := fs.Int("outbox-size", d.OutboxSize, "outbound frames queued for the writer")
	labelFile := fs.String("labels", d.LabelFile, "identifier,label file")
	watchLabels := fs.Bool("watch-labels", d.WatchLabels, "reload the label file when it changes")
	logLevel := fs.String("log-level", d.LogLevel, "log level (trace, debug, info, warn, error, off)")
	logPretty := fs.Bool("log-pretty", d.LogPretty, "human-readable console logs instead of JSON")

	return func(c *Config) {
		if fs.Changed("listen") {
			c.Listen = *listen
		}
		if fs.Changed("static-dir") {
			c.StaticDir = *staticDir
		}
		if fs.Changed("port") {
			c.Port = *port
		}
		if fs.Changed("baud") {
			c.Baud = *baud
		}
		if fs.Changed("auto-connect") {
			c.AutoConnect = *autoConnect
		}
		if fs.Changed("auto-sniff") {
			c.AutoSniff = *autoSniff
		}
		if fs.Changed("simulate") {
			c.Simulate = *simulate
		}
		if fs.Changed("read-timeout") {
			c.ReadTimeout = *readTimeout
		}
		if fs.Changed("ring-capacity") {
			c.RingCapacity = *ringCapacity
		}
		if fs.Changed("subscriber-buffer") {
			c.SubscriberBuffer = *subscriberBuffer
		}
		if fs.Changed("outbox-size") {
			c.OutboxSize = *outboxSize
		}
		if fs.Changed("labels") {
			c.LabelFile = *labelFile
		}
		if fs.Changed("watch-labels") {
			c.WatchLabels = *watchLabels
		}
		if fs.Changed("log-level") {
			c.LogLevel = *logLevel
		}
		if fs.Changed("log-pretty") {
			c.LogPretty = *logPretty
		}
	}
}
