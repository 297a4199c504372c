package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/valyala/fastjson"

	"github.com/philipp01105/ringlog/core"
)

// maxLine bounds a single log line read by check.
const maxLine = 1 << 20

type checkOptions struct {
	messages int
	strict   bool
	verbose  bool
}

func newCheckCmd() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Verify JSON log output",
		Long: `Verify a file of JSON log lines, one entry per line. "-" reads stdin.

Every line must be a JSON object with time, level and message. Pipeline
sequence numbers must increase from line to line, and per producer the
"n" counter written by "ringlog bench" must increase. Gaps in "n" are
entries the queue-full policy discarded; they only fail the check with
--strict.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			res, err := checkLog(r, cmd.ErrOrStderr(), opts)
			if err != nil {
				return err
			}
			res.render(cmd.OutOrStdout())
			if v := res.violations(opts.strict); v > 0 {
				return &checkFailedError{violations: v}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.messages, "messages", "n", 0, "entries expected per producer; missing ones count as gaps")
	f.BoolVar(&opts.strict, "strict", false, "treat gaps as violations")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "print every violation")
	return cmd
}

type producerState struct {
	name  string
	last  int64
	count int
}

type checkResult struct {
	lines      int
	invalid    int
	outOfOrder int
	seqErrors  int
	gaps       int64
	levels     [core.NumLevels]int
	producers  map[uint64]*producerState
}

func (r *checkResult) violations(strict bool) int {
	v := r.invalid + r.outOfOrder + r.seqErrors
	if strict {
		v += int(r.gaps)
	}
	return v
}

func checkLog(in io.Reader, errw io.Writer, opts *checkOptions) (*checkResult, error) {
	res := &checkResult{producers: make(map[uint64]*producerState)}
	report := func(line int, format string, args ...any) {
		if opts.verbose {
			fmt.Fprintf(errw, "line %d: %s\n", line, fmt.Sprintf(format, args...))
		}
	}

	var p fastjson.Parser
	lastSeq := int64(-1)

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	for sc.Scan() {
		res.lines++
		line := res.lines

		v, err := p.ParseBytes(sc.Bytes())
		if err != nil {
			res.invalid++
			report(line, "invalid JSON: %v", err)
			continue
		}
		if v.Type() != fastjson.TypeObject {
			res.invalid++
			report(line, "not an object")
			continue
		}
		if len(v.GetStringBytes("time")) == 0 || !v.Exists("message") {
			res.invalid++
			report(line, "missing time or message")
			continue
		}
		level, err := core.ParseLevel(string(v.GetStringBytes("level")))
		if err != nil || !v.Exists("level") {
			res.invalid++
			report(line, "bad level %q", v.GetStringBytes("level"))
			continue
		}
		res.levels[level]++

		// Entries written synchronously by a queue-full policy carry no seq.
		if v.Exists("seq") {
			seq := v.GetInt64("seq")
			if seq <= lastSeq {
				res.seqErrors++
				report(line, "seq %d after %d", seq, lastSeq)
			} else {
				lastSeq = seq
			}
		}

		if !v.Exists("thread_id") || !v.Exists("n") {
			continue
		}
		id := v.GetUint64("thread_id")
		n := v.GetInt64("n")
		ps := res.producers[id]
		if ps == nil {
			ps = &producerState{name: string(v.GetStringBytes("thread")), last: -1}
			res.producers[id] = ps
		}
		ps.count++
		switch {
		case n <= ps.last:
			res.outOfOrder++
			report(line, "%s: n=%d after n=%d", ps.name, n, ps.last)
		default:
			res.gaps += n - ps.last - 1
			ps.last = n
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	if opts.messages > 0 {
		for _, ps := range res.producers {
			if tail := int64(opts.messages-1) - ps.last; tail > 0 {
				res.gaps += tail
			}
		}
	}
	return res, nil
}

func (r *checkResult) render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"CHECK", "VALUE"})
	t.AppendRow(table.Row{"lines", r.lines})
	t.AppendRow(table.Row{"invalid", r.invalid})
	t.AppendRow(table.Row{"seq violations", r.seqErrors})
	t.AppendRow(table.Row{"out of order", r.outOfOrder})
	t.AppendRow(table.Row{"gaps", r.gaps})
	t.AppendRow(table.Row{"producers", len(r.producers)})
	for i, n := range r.levels {
		if n > 0 {
			t.AppendRow(table.Row{core.Level(i).String(), n})
		}
	}
	t.Render()

	if len(r.producers) == 0 {
		return
	}
	ids := make([]uint64, 0, len(r.producers))
	for id := range r.producers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pt := table.NewWriter()
	pt.SetOutputMirror(w)
	pt.SetStyle(table.StyleRounded)
	pt.AppendHeader(table.Row{"PRODUCER", "ID", "ENTRIES", "LAST N"})
	for _, id := range ids {
		ps := r.producers[id]
		pt.AppendRow(table.Row{ps.name, id, ps.count, ps.last})
	}
	pt.Render()
}
