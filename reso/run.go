package reso

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/decibelcooper/bicreso/edm"
)

// Input is one event file.
type Input struct {
	Name string
	Open func() (edm.Source, error)
}

// Run reads inputs with up to workers files in flight, extracts one outcome
// per event and fills a in input order, then finishes it. A nil log
// discards everything.
func Run(ctx context.Context, a Analysis, inputs []Input, workers int, log *zap.Logger) (*Result, error) {
	log = nopIfNil(log)
	if workers < 1 {
		workers = 1
	}

	parts := make([][]Outcome, len(inputs))
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)
	for i := range inputs {
		i := i
		grp.Go(func() error {
			var err error
			parts[i], err = extract(ctx, a, inputs[i], log.With(zap.String("input", inputs[i].Name)))
			return err
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	for _, part := range parts {
		for _, o := range part {
			a.Fill(o)
		}
	}
	return a.Finish(log)
}

func extract(ctx context.Context, a Analysis, in Input, log *zap.Logger) ([]Outcome, error) {
	src, err := in.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", in.Name, err)
	}
	defer src.Close()

	var out []Outcome
	for src.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		evt := src.Event()
		out = append(out, a.Extract(&evt, log))
	}
	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("could not read %q: %w", in.Name, err)
	}
	log.Debug("input done", zap.Int("events", len(out)))
	return out, nil
}
