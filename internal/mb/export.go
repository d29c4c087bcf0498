package mb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"mbk-go/internal/backup"
	"mbk-go/internal/frame"
	"mbk-go/internal/model"
	"mbk-go/internal/stream"
)

// Summary describes a backup that was written or read.
type Summary struct {
	Header *frame.BackupInfo
	Counts map[frame.Kind]int
}

// Total returns the number of frames, excluding the header.
func (s *Summary) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

func newSummary(h *frame.BackupInfo) *Summary {
	return &Summary{Header: h, Counts: make(map[frame.Kind]int)}
}

// Exporter serializes local state into a backup stream.
type Exporter struct {
	keys   *stream.Keys
	clock  Clock
	logger Logger
}

func NewExporter(keys *stream.Keys, clock Clock, logger Logger) *Exporter {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Exporter{keys: keys, clock: clock, logger: logger}
}

// exportRun tracks the stream-local ids already written so that no frame
// references something the reader has not seen yet.
type exportRun struct {
	ctx        context.Context
	w          *backup.Writer
	summary    *Summary
	recipients map[int64]bool
	chats      map[int64]bool
	self       bool
}

// Export writes the snapshot to sink as one complete backup. On error the
// sink holds an incomplete stream that will not verify.
func (e *Exporter) Export(ctx context.Context, snap ExportSnapshot, sink io.Writer) (_ *Summary, err error) {
	w, err := backup.NewWriter(sink, e.keys)
	if err != nil {
		return nil, fmt.Errorf("opening backup writer: %w", err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing backup writer: %w", cerr)
		}
	}()

	header := &frame.BackupInfo{Version: frame.Version, BackupTimeMs: uint64(e.clock.Now().UnixMilli())}
	if err := w.WriteHeader(header); err != nil {
		return nil, err
	}

	run := &exportRun{
		ctx:        ctx,
		w:          w,
		summary:    newSummary(header),
		recipients: make(map[int64]bool),
		chats:      make(map[int64]bool),
	}
	steps := []struct {
		name string
		fn   func(ExportSnapshot) error
	}{
		{"account", run.account},
		{"recipients", run.recipientFrames},
		{"chats", run.chatFrames},
		{"chat items", run.chatItemFrames},
		{"calls", run.callFrames},
		{"sticker packs", run.stickerPackFrames},
	}
	for _, s := range steps {
		if err := s.fn(snap); err != nil {
			return nil, fmt.Errorf("exporting %s: %w", s.name, err)
		}
		e.logger.Debug("exported", "section", s.name, "frames", w.Frames())
	}
	return run.summary, nil
}

func (r *exportRun) emit(f *frame.Frame) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if err := r.w.WriteFrame(f); err != nil {
		return err
	}
	r.summary.Counts[f.Kind()]++
	return nil
}

func (r *exportRun) needRecipient(id int64, what string) error {
	if !r.recipients[id] {
		return fmt.Errorf("%s references recipient %d which was not exported", what, id)
	}
	return nil
}

func (r *exportRun) account(snap ExportSnapshot) error {
	a, err := snap.Account(r.ctx)
	if err != nil {
		return err
	}
	return r.emit(&frame.Frame{Account: accountToFrame(a)})
}

func (r *exportRun) recipientFrames(snap ExportSnapshot) error {
	err := each(snap.Recipients(r.ctx), func(rec *model.Recipient) error {
		if rec.Kind == model.RecipientSelf {
			if r.self {
				return errors.New("more than one self recipient")
			}
			r.self = true
		}
		for _, m := range rec.Members {
			if err := r.needRecipient(m, fmt.Sprintf("distribution list %d", rec.ID)); err != nil {
				return err
			}
		}
		f, err := recipientToFrame(rec)
		if err != nil {
			return err
		}
		if err := r.emit(&frame.Frame{Recipient: f}); err != nil {
			return err
		}
		r.recipients[rec.ID] = true
		return nil
	})
	if err != nil {
		return err
	}
	if !r.self {
		return ErrNoSelfRecipient
	}
	return nil
}

func (r *exportRun) chatFrames(snap ExportSnapshot) error {
	return each(snap.Conversations(r.ctx), func(c *model.Conversation) error {
		if err := r.needRecipient(c.Thread.RecipientID, fmt.Sprintf("chat %d", c.Thread.ID)); err != nil {
			return err
		}
		if err := r.emit(&frame.Frame{Chat: chatToFrame(c)}); err != nil {
			return err
		}
		r.chats[c.Thread.ID] = true
		return nil
	})
}

func (r *exportRun) chatItemFrames(snap ExportSnapshot) error {
	return each(snap.Messages(r.ctx), func(m *model.Message) error {
		if !r.chats[m.ThreadID] {
			return fmt.Errorf("message %d references chat %d which was not exported", m.ID, m.ThreadID)
		}
		what := fmt.Sprintf("message %d", m.ID)
		if err := r.needRecipient(m.AuthorID, what); err != nil {
			return err
		}
		for _, s := range m.SendStatuses {
			if err := r.needRecipient(s.RecipientID, what); err != nil {
				return err
			}
		}
		for _, rx := range m.Reactions {
			if err := r.needRecipient(rx.AuthorID, what); err != nil {
				return err
			}
		}
		item, err := chatItemToFrame(m)
		if err != nil {
			return err
		}
		return r.emit(&frame.Frame{ChatItem: item})
	})
}

func (r *exportRun) callFrames(snap ExportSnapshot) error {
	return each(snap.Calls(r.ctx), func(c *model.Call) error {
		what := fmt.Sprintf("call %d", c.CallID)
		if err := r.needRecipient(c.PeerID, what); err != nil {
			return err
		}
		if c.RingerID != 0 {
			if err := r.needRecipient(c.RingerID, what); err != nil {
				return err
			}
		}
		return r.emit(&frame.Frame{Call: callToFrame(c)})
	})
}

func (r *exportRun) stickerPackFrames(snap ExportSnapshot) error {
	return each(snap.StickerPacks(r.ctx), func(p *model.StickerPack) error {
		return r.emit(&frame.Frame{StickerPack: stickerPackToFrame(p)})
	})
}

func each[T any](seq iter.Seq2[T, error], fn func(T) error) error {
	for v, err := range seq {
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}
