package reso_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/decibelcooper/bicreso/edm"
	"github.com/decibelcooper/bicreso/reso"
	"github.com/decibelcooper/bicreso/synth"
)

// recorder keeps the order in which outcomes are filled.
type recorder struct {
	*reso.ClustEne
	events []int
}

func (r *recorder) Fill(o reso.Outcome) {
	r.events = append(r.events, o.Event)
	r.ClustEne.Fill(o)
}

func inputs(evts []edm.Event, n int) []reso.Input {
	var ins []reso.Input
	size := (len(evts) + n - 1) / n
	for i := 0; i < len(evts); i += size {
		part := evts[i:min(i+size, len(evts))]
		ins = append(ins, reso.Input{
			Name: "part",
			Open: func() (edm.Source, error) { return edm.NewSliceSource(part), nil },
		})
	}
	return ins
}

func TestRunConcurrentMatchesSequential(t *testing.T) {
	defer goleak.VerifyNone(t)

	evts := synth.New(synth.DefaultConfig()).Energy(3000, 0.05)
	cfg := reso.Config{PDG: synth.PDGElectron}

	seq := &recorder{ClustEne: reso.NewClustEne(cfg)}
	want, err := reso.Run(context.Background(), seq, inputs(evts, 1), 1, zap.NewNop())
	require.NoError(t, err)

	par := &recorder{ClustEne: reso.NewClustEne(cfg)}
	got, err := reso.Run(context.Background(), par, inputs(evts, 7), 4, zap.NewNop())
	require.NoError(t, err)

	if diff := cmp.Diff(seq.events, par.events); diff != "" {
		t.Fatalf("fill order differs (-seq +par):\n%s", diff)
	}
	assert.Equal(t, want.Stats, got.Stats)
	assert.Equal(t, want.Reso, got.Reso)
	assert.Equal(t, want.Fit.Params, got.Fit.Params)
}

type failing struct {
	edm.SliceSource
}

func (failing) Err() error { return errors.New("boom") }

func TestRunInputErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	evts := synth.New(synth.DefaultConfig()).Energy(100, 0.05)
	ins := inputs(evts, 2)
	ins = append(ins, reso.Input{
		Name: "broken",
		Open: func() (edm.Source, error) { return nil, errors.New("no such file") },
	})
	_, err := reso.Run(context.Background(), reso.NewClustEne(reso.Config{PDG: 11}), ins, 2, zap.NewNop())
	assert.ErrorContains(t, err, `could not open "broken"`)

	ins = []reso.Input{{
		Name: "bad",
		Open: func() (edm.Source, error) { return &failing{*edm.NewSliceSource(evts)}, nil },
	}}
	_, err = reso.Run(context.Background(), reso.NewClustEne(reso.Config{PDG: 11}), ins, 1, zap.NewNop())
	assert.ErrorContains(t, err, `could not read "bad": boom`)
}

func TestRunCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	evts := synth.New(synth.DefaultConfig()).Energy(10, 0.05)
	_, err := reso.Run(ctx, reso.NewClustEne(reso.Config{PDG: 11}), inputs(evts, 1), 1, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunNilLogger(t *testing.T) {
	defer goleak.VerifyNone(t)

	evts := synth.New(synth.DefaultConfig()).Energy(500, 0.05)
	r, err := reso.Run(context.Background(), reso.NewClustEne(reso.Config{PDG: synth.PDGElectron}), inputs(evts, 2), 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 500, r.Stats.Events)
}

func TestExtractNilLogger(t *testing.T) {
	a, err := reso.NewHitAng(reso.Config{PDG: synth.PDGElectron, Coord: reso.Eta}, reso.Gaus2)
	require.NoError(t, err)
	o := a.Extract(&edm.Event{Number: 3}, nil)
	assert.Equal(t, reso.NoPrimary, o.Skip)
}
