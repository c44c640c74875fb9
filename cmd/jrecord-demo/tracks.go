package main

import (
	"context"
	"fmt"
	"io"

	"github.com/shrek82/jrecord/core"
)

// journal is the sink the Track1 callbacks report to.
type journal struct {
	called []string
	dead   []any
}

func (j *journal) mark(label string) { j.called = append(j.called, label) }

func (j *journal) reset() { j.called = nil }

// defineTracks declares Track and its callback-carrying subclass Track1.
func defineTracks(reg *core.Registry, j *journal) (track, track1 *core.Class) {
	track = reg.Define("Track", nil).SetCollection("tracks")
	track1 = reg.Define("Track1", track)

	track1.BeforeCreate(core.Notify(func(r *core.Record) {
		r.Set("song", r.String("song")+",before_create")
		j.mark("before_create")
	}))
	track1.BeforeUpdate(core.Notify(func(r *core.Record) {
		r.Set("song", r.String("song")+",before_update")
		j.mark("before_update")
	}))
	track1.BeforeSave(core.Notify(func(r *core.Record) {
		r.Set("song", r.String("song")+",before_save")
		j.mark("before_save")
	}))

	track1.AfterSave(core.Notify(func(r *core.Record) {
		r.Set("track", r.Int("track")+3)
		j.mark("after_save")
	}))
	track1.AfterCreate(core.Notify(func(r *core.Record) {
		r.Set("track", r.Int("track")-2)
		j.mark("after_create")
	}))
	track1.AfterUpdate(core.Notify(func(r *core.Record) {
		r.Set("track", r.Int("track")*5)
		j.mark("after_update")
	}))

	track1.BeforeDestroy(core.Notify(func(r *core.Record) {
		j.dead = append(j.dead, r.String("song"))
		j.mark("before_destroy")
	}))
	track1.AfterDestroy(core.Notify(func(r *core.Record) {
		j.dead = append(j.dead, r.Int("track"))
		j.mark("after_destroy")
	}))
	return track, track1
}

func describe(r *core.Record) string {
	return fmt.Sprintf("id: %v, state: %s, artist: %s, album: %s, song: %s, track: %d",
		r.ID(), r.State(), r.String("artist"), r.String("album"), r.String("song"), r.Int("track"))
}

// runScenario creates, reloads, updates and destroys one Track1 record.
func runScenario(ctx context.Context, engine *core.Engine, track1 *core.Class, j *journal, out io.Writer) error {
	t := track1.New(
		"artist", "Porcupine Tree",
		"album", "The Incident",
		"song", "Your Unpleasant Family",
		"track", 7,
	)
	fmt.Fprintf(out, "new:      %s\n", describe(t))

	if err := engine.Save(ctx, t); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	fmt.Fprintf(out, "created:  %s\n          callbacks %v\n", describe(t), j.called)

	loaded, err := engine.Find(ctx, track1, t.ID())
	if err != nil {
		return fmt.Errorf("find: %w", err)
	}
	fmt.Fprintf(out, "stored:   %s\n", describe(loaded))

	j.reset()
	t.Set("track", 7)
	if err := engine.Save(ctx, t); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	fmt.Fprintf(out, "updated:  %s\n          callbacks %v\n", describe(t), j.called)

	j.reset()
	if err := engine.Destroy(ctx, t); err != nil {
		return fmt.Errorf("destroy: %w", err)
	}
	fmt.Fprintf(out, "destroyed: %s\n          callbacks %v, dead %v\n", describe(t), j.called, j.dead)
	return nil
}
