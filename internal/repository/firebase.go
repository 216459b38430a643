package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/db"
	"github.com/golang-sql/civil"
	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"go.uber.org/zap"
)

const (
	parentsPath       = "Parents"
	notificationsPath = "notifications"
	failuresPath      = "notifications_failures"
)

// Tree is the path-addressed document access the RTDB repository needs.
type Tree interface {
	Get(ctx context.Context, path string, v any) error
	Set(ctx context.Context, path string, v any) error
	Update(ctx context.Context, path string, fields map[string]any) error
}

// RTDBTree adapts a Firebase Realtime Database client to Tree.
type RTDBTree struct {
	c *db.Client
}

func NewRTDBTree(c *db.Client) *RTDBTree { return &RTDBTree{c: c} }

func (t *RTDBTree) Get(ctx context.Context, path string, v any) error {
	return t.c.NewRef(path).Get(ctx, v)
}

func (t *RTDBTree) Set(ctx context.Context, path string, v any) error {
	return t.c.NewRef(path).Set(ctx, v)
}

func (t *RTDBTree) Update(ctx context.Context, path string, fields map[string]any) error {
	return t.c.NewRef(path).Update(ctx, fields)
}

// parentDoc and childDoc are the write shapes used by Upsert.
type parentDoc struct {
	MuteReminders bool                `json:"muteReminders,omitempty"`
	Timezone      string              `json:"timezone,omitempty"`
	FCMTokens     map[string]any      `json:"fcmTokens,omitempty"`
	Children      map[string]childDoc `json:"children,omitempty"`
}

type childDoc struct {
	Name             string `json:"name,omitempty"`
	NextDueVaccine   string `json:"nextDueVaccine,omitempty"`
	NextDueDate      string `json:"nextDueDate,omitempty"`
	LastNotifiedDate string `json:"lastNotifiedDate,omitempty"`
}

// FirebaseRepository keeps recipients under Parents/<id> and audit records
// under notifications/ and notifications_failures/.
type FirebaseRepository struct {
	tree Tree
	log  *zap.Logger
}

func NewFirebaseRepository(tree Tree, log *zap.Logger) *FirebaseRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &FirebaseRepository{tree: tree, log: log}
}

// GetAllRecipients reads the whole Parents node once. Parents and children
// come back ordered by key. A parent whose document cannot be decoded is
// logged and skipped; only a failed read is an error.
func (r *FirebaseRepository) GetAllRecipients(ctx context.Context) ([]model.Recipient, error) {
	var raw json.RawMessage
	if err := r.tree.Get(ctx, parentsPath, &raw); err != nil {
		return nil, fmt.Errorf("read %s: %w", parentsPath, err)
	}
	parents, err := decodeNode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", parentsPath, err)
	}

	out := make([]model.Recipient, 0, len(parents))
	for _, id := range nodeKeys(parents) {
		rec, err := decodeParent(id, parents[id])
		if err != nil {
			r.log.Warn("skipping malformed parent", zap.String("recipient_id", id), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// UpdateLastNotified writes every lastNotifiedDate in one multi-path update.
func (r *FirebaseRepository) UpdateLastNotified(ctx context.Context, recipientID string, eventIDs []string, date civil.Date) error {
	if len(eventIDs) == 0 {
		return nil
	}
	updates := make(map[string]any, len(eventIDs))
	for _, id := range eventIDs {
		updates[joinPath(parentsPath, recipientID, "children", id, "lastNotifiedDate")] = date.String()
	}
	if err := r.tree.Update(ctx, "/", updates); err != nil {
		return fmt.Errorf("update last notified %s: %w", recipientID, err)
	}
	return nil
}

// Upsert replaces the whole Parents/<id> node with rec.
func (r *FirebaseRepository) Upsert(ctx context.Context, rec model.Recipient) error {
	doc := parentDoc{MuteReminders: rec.Muted, Timezone: rec.Timezone}
	if len(rec.Tokens) > 0 {
		doc.FCMTokens = make(map[string]any, len(rec.Tokens))
		for _, tok := range rec.Tokens {
			doc.FCMTokens[tok] = true
		}
	}
	if len(rec.Events) > 0 {
		doc.Children = make(map[string]childDoc, len(rec.Events))
		for _, ev := range rec.Events {
			c := childDoc{Name: ev.Label, NextDueVaccine: ev.Category}
			if ev.DueDate.IsValid() {
				c.NextDueDate = ev.DueDate.String()
			}
			if ev.LastNotifiedDate != nil {
				c.LastNotifiedDate = ev.LastNotifiedDate.String()
			}
			doc.Children[ev.ID] = c
		}
	}
	path := joinPath(parentsPath, rec.ID)
	if err := r.tree.Set(ctx, path, doc); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (r *FirebaseRepository) RecordSuccess(ctx context.Context, rec model.AuditRecord) error {
	path := joinPath(notificationsPath, rec.RecipientID, rec.EventID, rec.TargetDate.String())
	doc := map[string]any{
		"sentAt": map[string]string{".sv": "timestamp"}, // server time
		"body":   rec.Body,
		"runId":  rec.RunID,
		"result": rec.Counts,
	}
	if err := r.tree.Set(ctx, path, doc); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (r *FirebaseRepository) RecordFailure(ctx context.Context, rec model.FailureRecord) error {
	path := joinPath(failuresPath, rec.RecipientID, rec.EventID, rec.TargetDate.String())
	doc := map[string]any{
		"error": rec.Error,
		"ts":    rec.FailedAt.UnixMilli(),
		"runId": rec.RunID,
	}
	if err := r.tree.Set(ctx, path, doc); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func joinPath(parts ...string) string {
	return strings.Join(parts, "/")
}
