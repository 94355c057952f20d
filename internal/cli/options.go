package cli

import "time"

type Options struct {
	Command      string
	Args         []string
	BaseURL      string
	Currency     string
	MetricsAddr  string
	JSON         bool
	Debug        bool
	LogFile      string
	Timeout      time.Duration
	PollInterval time.Duration
}
