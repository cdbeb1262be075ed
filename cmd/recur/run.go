package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/librecur/internal/config"
	"github.com/cyp0633/librecur/internal/icsfile"
	"github.com/cyp0633/librecur/internal/render"
	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/ruletext"
	"github.com/cyp0633/librecur/timezone"
)

// flagConfig holds CLI flag values
type flagConfig struct {
	configPath string
	rulesPath  string
	icsPath    string
	from       string
	to         string
	tz         string
	format     string
	next       string
	showRange  bool
	local      bool
}

func parseFlags(args []string, stderr io.Writer) (flagConfig, error) {
	var cfg flagConfig

	fs := flag.NewFlagSet("recur", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.configPath, "config", "recur.yaml", "Path to config file (missing file means defaults)")
	fs.StringVar(&cfg.rulesPath, "rules", "", "File with DTSTART/RRULE/EXDATE lines; stdin when empty")
	fs.StringVar(&cfg.icsPath, "ics", "", "iCalendar file; every VEVENT is expanded")
	fs.StringVar(&cfg.from, "from", "", "Window start (RFC 3339)")
	fs.StringVar(&cfg.to, "to", "", "Window end (RFC 3339)")
	fs.StringVar(&cfg.tz, "tz", "", "Timezone for rules without TZID (overrides config)")
	fs.StringVar(&cfg.format, "format", "", "Output format: text, json or xcal (overrides config)")
	fs.StringVar(&cfg.next, "next", "", "Also print the first occurrence at or after this instant (RFC 3339)")
	fs.BoolVar(&cfg.showRange, "range", false, "Also print the overall range")
	fs.BoolVar(&cfg.local, "local", false, "Show instants in the local timezone (text output)")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.rulesPath != "" && cfg.icsPath != "" {
		return cfg, errors.New("-rules and -ics are mutually exclusive")
	}
	return cfg, nil
}

// source is one rule set to evaluate.
type source struct {
	uid     string
	summary string
	lines   []string
	event   recurrence.Event
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.tz != "" {
		conf.Timezone = flags.tz
	}
	if flags.format != "" {
		conf.Format = flags.format
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: conf.SlogLevel()}))
	logger.Debug("effective config",
		"timezone", conf.Timezone,
		"format", conf.Format,
		"max_iterations", conf.MaxIterations,
		"horizon_days", conf.HorizonDays,
		"cache", conf.Cache.Enabled,
	)

	tz, err := conf.Source()
	if err != nil {
		return err
	}

	window, err := parseWindow(flags.from, flags.to, conf.Horizon())
	if err != nil {
		return err
	}

	var next mo.Option[timezone.Base]
	if flags.next != "" {
		b, err := parseInstant(flags.next)
		if err != nil {
			return fmt.Errorf("-next: %w", err)
		}
		next = mo.Some(b)
	}

	sources, err := loadSources(flags, stdin, logger)
	if err != nil {
		return err
	}

	renderer, err := render.New(conf.Format, render.Options{Local: flags.local})
	if err != nil {
		return err
	}

	engine := recurrence.NewEngineWithConfig(conf.EngineConfig()).WithLogger(logger)
	defer engine.Close()

	items := make([]render.Item, 0, len(sources))
	for _, src := range sources {
		item, err := evaluate(engine, src, tz, window, conf.Horizon(), next, flags.showRange)
		if err != nil {
			return fmt.Errorf("%s: %w", src.uid, err)
		}
		items = append(items, item)
	}

	logger.Debug("cache stats", "hits", engine.Stats().Hits, "entries", engine.Stats().TotalEntries)
	return renderer.Render(stdout, items)
}

// evaluate expands one source. Without a window a bounded rule is expanded in
// full; an unbounded one is cut at horizon past its first occurrence.
func evaluate(engine *recurrence.Engine, src source, tz timezone.Source, window mo.Option[recurrence.Interval],
	horizon time.Duration, next mo.Option[timezone.Base], showRange bool) (render.Item, error) {

	opts := recurrence.Options{Timezone: tz, Event: src.event}

	inst, err := engine.New(src.lines, opts)
	if err != nil {
		return render.Item{}, err
	}

	item := render.Item{UID: src.uid, Summary: src.summary, Timezone: "UTC"}
	if inst.Timezone() != nil {
		item.Timezone = inst.Timezone().Name()
	}

	exp, err := engine.Expand(src.lines, opts, window)
	if errors.Is(err, recurrence.ErrUnbounded) {
		start := inst.OverallRange().Start
		exp, err = engine.Expand(src.lines, opts, mo.Some(recurrence.Interval{
			Start: start,
			End:   start.Add(horizon),
		}))
	}
	if err != nil {
		return render.Item{}, err
	}
	item.Expansion = exp

	if from, ok := next.Get(); ok {
		item.Next = inst.NextOccurrence(from)
	}
	if showRange {
		item.Range = mo.Some(inst.OverallRange())
	}
	return item, nil
}

func parseWindow(from, to string, horizon time.Duration) (mo.Option[recurrence.Interval], error) {
	if from == "" && to == "" {
		return mo.None[recurrence.Interval](), nil
	}

	var iv recurrence.Interval
	var err error
	if from != "" {
		if iv.Start, err = parseInstant(from); err != nil {
			return mo.None[recurrence.Interval](), fmt.Errorf("-from: %w", err)
		}
	} else {
		iv.Start = timezone.BaseOf(time.Now().Truncate(time.Second))
	}
	if to != "" {
		if iv.End, err = parseInstant(to); err != nil {
			return mo.None[recurrence.Interval](), fmt.Errorf("-to: %w", err)
		}
	} else {
		iv.End = iv.Start.Add(horizon)
	}
	if iv.End.Before(iv.Start) {
		return mo.None[recurrence.Interval](), errors.New("-to is before -from")
	}
	return mo.Some(iv), nil
}

func parseInstant(s string) (timezone.Base, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return timezone.Base{}, err
	}
	return timezone.BaseOf(t), nil
}

func loadSources(flags flagConfig, stdin io.Reader, logger *slog.Logger) ([]source, error) {
	if flags.icsPath != "" {
		events, err := icsfile.ReadFile(flags.icsPath, logger)
		if err != nil {
			return nil, err
		}
		sources := make([]source, 0, len(events))
		for _, ev := range events {
			event, err := recurrence.EventFromComponent(ev.Component)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", ev.UID, err)
			}
			sources = append(sources, source{
				uid:     ev.UID,
				summary: ev.Summary,
				lines:   recurrence.LinesFromComponent(ev.Component),
				event:   event,
			})
		}
		return sources, nil
	}

	var (
		data []byte
		err  error
		uid  = "stdin"
	)
	if flags.rulesPath != "" {
		data, err = os.ReadFile(flags.rulesPath)
		uid = flags.rulesPath
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return nil, err
	}

	lines := ruletext.SplitLines(string(data))
	if len(lines) == 0 {
		return nil, errors.New("no rule lines given")
	}
	return []source{{uid: uid, lines: lines, event: recurrence.Event{ID: uid}}}, nil
}
