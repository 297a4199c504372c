package consolehandler_test

import (
	"fmt"
	"os"
	"time"

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/formatter"
	"github.com/philipp01105/ringlog/handler"
	"github.com/philipp01105/ringlog/handler/consolehandler"
)

func ExampleNewConsoleHandler() {
	h := consolehandler.NewConsoleHandler(consolehandler.ConsoleConfig{
		Writer:    os.Stdout,
		Formatter: formatter.NewTextFormatter(formatter.Config{TimestampFormat: "15:04:05"}),
	})
	defer h.Close()

	e := core.GetEntry()
	e.Time = time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	e.Level = core.InfoLevel
	e.Message = "listening"
	e.Fields = append(e.Fields, core.StringField("addr", ":8080"))
	_ = h.Handle(e)
	core.PutEntry(e)
	// Output:
	// 09:30:00 [INFO] listening addr=:8080
}

// An async console handler drops low-level entries once its ring is full
// and reports what it did through its stats.
func ExampleNewConsoleHandler_async() {
	h := consolehandler.NewConsoleHandler(consolehandler.ConsoleConfig{
		Writer:     os.Stdout,
		Async:      true,
		BufferSize: 256,
		Policy:     &handler.DiscardByLevelPolicy{Threshold: core.WarnLevel},
		Formatter:  formatter.NewJSONFormatter(formatter.Config{TimestampFormat: "-"}),
	})

	for i := range 3 {
		e := core.GetEntry()
		e.Level = core.InfoLevel
		e.Message = fmt.Sprintf("job %d queued", i)
		_ = h.Handle(e)
		core.PutEntry(e)
	}
	_ = h.Close()

	s := h.(handler.StatsProvider).Stats()
	fmt.Println("processed:", s.ProcessedTotal, "dropped:", s.Dropped())
	// Output:
	// {"time":"-","level":"INFO","seq":0,"message":"job 0 queued"}
	// {"time":"-","level":"INFO","seq":1,"message":"job 1 queued"}
	// {"time":"-","level":"INFO","seq":2,"message":"job 2 queued"}
	// processed: 3 dropped: 0
}
