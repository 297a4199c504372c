package logger_test

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/valyala/fastjson"

	"github.com/philipp01105/ringlog/diag"
	"github.com/philipp01105/ringlog/formatter"
	"github.com/philipp01105/ringlog/handler/consolehandler"
	"github.com/philipp01105/ringlog/logger"
)

// printLines prints the chosen keys of every JSON line in r, skipping
// timestamps so the output is stable.
func printLines(r io.Reader, keys ...string) {
	var p fastjson.Parser
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		v, err := p.ParseBytes(sc.Bytes())
		if err != nil {
			fmt.Println("bad line:", err)
			continue
		}
		for i, k := range keys {
			if i > 0 {
				fmt.Print(" ")
			}
			if f := v.Get(k); f != nil {
				fmt.Printf("%s=%s", k, f)
			} else {
				fmt.Printf("%s=-", k)
			}
		}
		fmt.Println()
	}
}

func jsonLogger(buf *bytes.Buffer, async bool) *logger.Logger {
	ch := consolehandler.NewConsoleHandler(consolehandler.ConsoleConfig{
		Writer:    buf,
		Async:     async,
		Formatter: formatter.NewJSONFormatter(formatter.Config{}),
	})
	return logger.NewBuilder().WithHandler(ch).WithName("api").Build()
}

func ExampleNewBuilder() {
	var buf bytes.Buffer
	log := jsonLogger(&buf, false)

	log.Info("ready", logger.Int("port", 8080))
	log.Debug("below the level gate")
	log.Close()

	printLines(&buf, "level", "logger", "message", "port")
	// Output:
	// level="INFO" logger="api" message="ready" port=8080
}

func ExampleLogger_With() {
	var buf bytes.Buffer
	log := jsonLogger(&buf, false)

	reqLog := log.With(logger.String("request_id", "req-12345"))
	reqLog.Info("processing", logger.String("path", "/api/users"))
	reqLog.Warnf("slow by %dms", 250)
	log.Close()

	printLines(&buf, "level", "message", "request_id")
	// Output:
	// level="INFO" message="processing" request_id="req-12345"
	// level="WARN" message="slow by 250ms" request_id="req-12345"
}

// Each producer binds its own diagnostic context. Entries pass through the
// async ring and keep the context they had at the call.
func ExampleLogger_Bind() {
	var buf bytes.Buffer
	log := jsonLogger(&buf, true)

	dc := diag.New("worker-1")
	wlog := log.Bind(dc)

	dc.Put("order", "o-42")
	dc.Push("checkout")
	wlog.Info("charging card")
	dc.Pop()
	dc.Put("order", "o-43")
	wlog.Info("done")
	log.Close()

	printLines(&buf, "thread", "message", "context", "ndc")
	// Output:
	// thread="worker-1" message="charging card" context={"order":"o-42"} ndc=["checkout"]
	// thread="worker-1" message="done" context={"order":"o-43"} ndc=-
}
