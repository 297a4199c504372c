package setup

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/philipp01105/ringlog/config"
	"github.com/philipp01105/ringlog/formatter"
	"github.com/philipp01105/ringlog/handler"
	"github.com/philipp01105/ringlog/handler/consolehandler"
	"github.com/philipp01105/ringlog/handler/filehandler"
	"github.com/philipp01105/ringlog/handler/sqlhandler"
)

// buildHandlers opens every configured sink. Sinks are synchronous; the
// pipeline built by New sits in front of all of them. On failure the sinks
// opened so far are closed.
func buildHandlers(cfgs []config.HandlerConfig, caller bool, o *options) ([]handler.Handler, error) {
	handlers := make([]handler.Handler, 0, len(cfgs))
	for i, hc := range cfgs {
		h, err := buildHandler(hc, caller, o)
		if err != nil {
			for _, opened := range handlers {
				err = multierr.Append(err, opened.Close())
			}
			return nil, fmt.Errorf("handler %d (%s): %w", i, hc.Type, err)
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}

func buildHandler(hc config.HandlerConfig, caller bool, o *options) (handler.Handler, error) {
	switch hc.Type {
	case "console":
		w := o.stdout
		if hc.Output == "stderr" {
			w = o.stderr
		}
		mode, err := consolehandler.ParseColorMode(hc.Color)
		if err != nil {
			return nil, err
		}
		f, err := newFormatter(hc.Format, formatter.Config{
			IncludeCaller: caller,
			Colors:        consolehandler.ShouldColor(w, mode),
		})
		if err != nil {
			return nil, err
		}
		return consolehandler.NewConsoleHandler(consolehandler.ConsoleConfig{
			Writer:    w,
			Formatter: f,
			Color:     mode,
		}), nil

	case "file":
		f, err := newFormatter(hc.Format, formatter.Config{IncludeCaller: caller})
		if err != nil {
			return nil, err
		}
		return filehandler.NewFileHandler(filehandler.FileConfig{
			Filename:       hc.Path,
			Formatter:      f,
			MaxSize:        hc.MaxSize,
			MaxAge:         hc.MaxAge,
			MaxBackups:     hc.MaxBackups,
			RotateInterval: hc.RotateInterval,
			Compress:       hc.Compress,
			WatchRotation:  hc.Watch,
		})

	case "sqlite":
		return sqlhandler.NewSQLHandler(sqlhandler.Config{
			DSN:       hc.DSN,
			Table:     hc.Table,
			BatchSize: hc.BatchSize,
		})
	}
	return nil, fmt.Errorf("unknown handler type %q", hc.Type)
}

func newFormatter(format string, cfg formatter.Config) (formatter.Formatter, error) {
	switch format {
	case "text", "":
		return formatter.NewTextFormatter(cfg), nil
	case "json":
		cfg.Colors = false
		return formatter.NewJSONFormatter(cfg), nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// fanOut returns the single handler as is, or a MultiHandler over several.
func fanOut(handlers []handler.Handler) handler.Handler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return handler.NewMultiHandler(handlers...)
}
