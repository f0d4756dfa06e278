package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/deskbridge/internal/model"
)

// CursorPreview receives replayed actions for visual playback. The GUI
// overlay implements this in the desktop build; the CLI ships a
// terminal printer.
type CursorPreview interface {
	PreviewAction(action model.Action)
}

// ReadActions loads MOVE/CLICK actions from a replay stream
// (actions.jsonl). The stream never contains text payloads, so there
// is nothing to filter here — TYPE records carry only a length field
// and are skipped by kind.
func ReadActions(path string) ([]model.Action, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open replay log: %w", err)
	}
	defer f.Close()

	var actions []model.Action
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var record struct {
			Payload struct {
				Action string `json:"action"`
				X      int    `json:"x"`
				Y      int    `json:"y"`
			} `json:"payload"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue // skip malformed lines
		}
		switch model.ActionKind(record.Payload.Action) {
		case model.ActionMove:
			actions = append(actions, model.Move(record.Payload.X, record.Payload.Y))
		case model.ActionClick:
			actions = append(actions, model.Click(record.Payload.X, record.Payload.Y))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read replay log: %w", err)
	}
	return actions, nil
}

// Replay steps recorded actions through the preview on a fixed
// interval. Stops early when ctx is cancelled.
func Replay(ctx context.Context, actions []model.Action, preview CursorPreview, interval time.Duration) error {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for _, action := range actions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			preview.PreviewAction(action)
		}
	}
	return nil
}
