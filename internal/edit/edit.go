// Package edit implements the per-cell edit state machine:
//
//	Viewing -> Editing -> Saving -> Viewing
//	                   -> Cancelled -> Viewing
//
// At most one edit session exists per table. Beginning an edit on a new
// cell while another is mid-edit force-cancels the first, so the invariant
// holds without any queueing.
package edit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/sjson"

	"github.com/dshills/gridkit/internal/config"
	"github.com/dshills/gridkit/internal/event"
	"github.com/dshills/gridkit/internal/grid"
	"github.com/dshills/gridkit/internal/logging"
	"github.com/dshills/gridkit/internal/session"
)

// ValidationError is surfaced inline at the edit site; the session stays
// open for correction.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SaveHook persists the value externally before the local commit. A nil
// hook means local-only.
type SaveHook func(ctx context.Context, row grid.Row, fieldPath, oldValue, newValue string) error

// Validator is an externally supplied check run after the built-in ones.
// A non-nil return aborts the save.
type Validator func(row grid.Row, fieldPath, value string) error

// Errors the controller returns for state-machine misuse.
var (
	ErrNotEditable = fmt.Errorf("edit: cell is not editable")
	ErrNoSession   = fmt.Errorf("edit: no edit session active")
)

// Controller drives cell editing for one table.
type Controller struct {
	sess    *session.Session
	host    grid.Host
	bus     *event.Bus
	log     *logging.Logger
	columns []config.Column

	saveHook  SaveHook
	validator Validator
}

// Option configures a Controller.
type Option func(*Controller)

// WithSaveHook installs the external persistence hook.
func WithSaveHook(h SaveHook) Option {
	return func(c *Controller) { c.saveHook = h }
}

// WithValidator installs the external validator.
func WithValidator(v Validator) Option {
	return func(c *Controller) { c.validator = v }
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// New creates the edit controller for one table session.
func New(sess *session.Session, host grid.Host, bus *event.Bus, columns []config.Column, opts ...Option) *Controller {
	c := &Controller{
		sess:    sess,
		host:    host,
		bus:     bus,
		log:     logging.Discard(),
		columns: columns,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Active returns the current edit session, or nil.
func (c *Controller) Active() *session.EditSession {
	return c.sess.Edit
}

// Begin enters edit mode on the cell at (row, col) of the current page.
// Any in-progress edit elsewhere is cancelled first. Returns ErrNotEditable
// for cells whose column is not marked editable.
func (c *Controller) Begin(row, col int) error {
	if col < 0 || col >= len(c.columns) {
		return ErrNotEditable
	}
	spec := c.columns[col]
	if !spec.Editable {
		return ErrNotEditable
	}
	rows := c.host.PageRows()
	if row < 0 || row >= len(rows) {
		return ErrNotEditable
	}

	if c.sess.Edit != nil {
		c.Cancel()
	}

	original := rows[row].Field(spec.Data)
	c.sess.Edit = &session.EditSession{
		Row:       row,
		Col:       col,
		RowID:     rows[row].ID,
		FieldPath: spec.Data,
		Original:  original,
		Pending:   original,
	}
	c.sess.Focus = session.Focus{Row: row, Col: col, Mode: session.FocusEdit}
	return nil
}

// SetPending records the edit surface's current value.
func (c *Controller) SetPending(value string) error {
	if c.sess.Edit == nil {
		return ErrNoSession
	}
	c.sess.Edit.Pending = value
	return nil
}

// Cancel discards the pending value and returns to viewing. Safe to call
// with no active session.
func (c *Controller) Cancel() {
	es := c.sess.Edit
	if es == nil {
		return
	}
	c.sess.Edit = nil
	c.sess.Focus.Mode = session.FocusNavigate

	c.bus.Publish(event.New(event.TopicCellCancelled, c.host.TableID(), event.CellPayload{
		Row:       es.Row,
		Col:       es.Col,
		FieldPath: es.FieldPath,
		OldValue:  es.Original,
	}))
}

// Save validates and commits the pending value. Validation failure keeps
// the session open with the error recorded on it. A pending value equal to
// the original is a no-op cancel: no hook, no redraw beyond leaving edit
// mode. Hook failure leaves local state untouched and the session open.
func (c *Controller) Save(ctx context.Context) error {
	es := c.sess.Edit
	if es == nil {
		return ErrNoSession
	}
	spec := c.columns[es.Col]

	// The page may have been re-sorted, filtered, or truncated since
	// Begin. The commit target is the row captured then, never whatever
	// now sits at the same page index.
	rows := c.host.PageRows()
	if es.Row >= len(rows) || rows[es.Row].ID != es.RowID {
		c.Cancel()
		return ErrNoSession
	}
	row := rows[es.Row]

	value, err := c.coerce(spec, es.Pending)
	if err == nil {
		err = c.validate(spec, value)
	}
	if err == nil && c.validator != nil {
		if verr := c.validator(row, es.FieldPath, value); verr != nil {
			err = &ValidationError{Field: spec.Data, Message: verr.Error()}
		}
	}
	if err != nil {
		es.Err = errMessage(err)
		return err
	}
	es.Err = ""

	if value == es.Original {
		c.Cancel()
		return nil
	}

	if c.saveHook != nil {
		if hookErr := c.saveHook(ctx, row, es.FieldPath, es.Original, value); hookErr != nil {
			// Pre-operation state: session stays open, nothing local
			// changed, the failure is surfaced to the caller.
			es.Err = hookErr.Error()
			return fmt.Errorf("save hook: %w", hookErr)
		}
	}

	data, err := WriteField(row.Data, es.FieldPath, value, spec.EditType)
	if err != nil {
		es.Err = err.Error()
		return fmt.Errorf("commit field %s: %w", es.FieldPath, err)
	}
	c.host.UpdateRow(row.ID, data)

	c.sess.Edit = nil
	c.sess.Focus.Mode = session.FocusNavigate
	c.host.RedrawRow(row.ID)

	c.bus.Publish(event.New(event.TopicCellSaved, c.host.TableID(), event.CellPayload{
		Row:       es.Row,
		Col:       es.Col,
		FieldPath: es.FieldPath,
		OldValue:  es.Original,
		NewValue:  value,
	}))
	return nil
}

// coerce normalizes the surface value by edit type. Numeric strings become
// canonical numbers; dates must parse.
func (c *Controller) coerce(spec config.Column, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	switch spec.EditType {
	case config.EditNumber:
		if value == "" {
			return value, nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", &ValidationError{Field: spec.Data, Message: "must be a number"}
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case config.EditDate:
		if value == "" {
			return value, nil
		}
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return "", &ValidationError{Field: spec.Data, Message: "must be a date (YYYY-MM-DD)"}
		}
		return value, nil
	case config.EditTextarea:
		// Multi-line surfaces keep their whitespace.
		return raw, nil
	default:
		return value, nil
	}
}

// validate runs the built-in checks from the column spec.
func (c *Controller) validate(spec config.Column, value string) error {
	if spec.EditRequired && value == "" {
		return &ValidationError{Field: spec.Data, Message: "value is required"}
	}
	if value == "" {
		return nil
	}

	if spec.EditType == config.EditNumber {
		f, _ := strconv.ParseFloat(value, 64)
		if spec.EditMin != nil && f < *spec.EditMin {
			return &ValidationError{Field: spec.Data, Message: fmt.Sprintf("must be at least %v", *spec.EditMin)}
		}
		if spec.EditMax != nil && f > *spec.EditMax {
			return &ValidationError{Field: spec.Data, Message: fmt.Sprintf("must be at most %v", *spec.EditMax)}
		}
	}

	if spec.EditType == config.EditSelect && len(spec.EditOptions) > 0 {
		found := false
		for _, opt := range spec.EditOptions {
			if value == opt {
				found = true
				break
			}
		}
		if !found {
			return &ValidationError{Field: spec.Data, Message: "not one of the allowed options"}
		}
	}

	if spec.EditPattern != "" {
		re, err := regexp.Compile(spec.EditPattern)
		if err != nil {
			// A broken pattern in configuration must not block edits.
			c.log.Warn("invalid edit pattern for %s: %v", spec.Data, err)
			return nil
		}
		if !re.MatchString(value) {
			msg := spec.EditPatternMessage
			if msg == "" {
				msg = "does not match the required pattern"
			}
			return &ValidationError{Field: spec.Data, Message: msg}
		}
	}
	return nil
}

// WriteField assigns a value into a row document at a dot path, preserving
// the field's JSON type: numeric columns write numbers, everything else
// strings. Exported because bulk update shares it.
func WriteField(data []byte, fieldPath, value string, editType config.EditType) ([]byte, error) {
	if editType == config.EditNumber && value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return sjson.SetBytes(data, fieldPath, f)
		}
	}
	return sjson.SetBytes(data, fieldPath, value)
}

func errMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}
