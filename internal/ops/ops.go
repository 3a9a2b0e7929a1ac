// Package ops implements import, export, delete and list for each resource
// type on top of the tenant API, the file conventions and the console.
//
// Every bulk operation resolves one Mode from its options, opens exactly one
// progress indicator, collects per-item failures without stopping, and
// returns a single error: nil on success, *ErrPartialFailure when any item
// failed, *ErrUsage when the flags select no mode.
package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/nvinuesa/tenantporter/internal/console"
	"github.com/nvinuesa/tenantporter/internal/model"
	"github.com/nvinuesa/tenantporter/internal/tenant"
)

// ToolName is written to meta.exportTool.
const ToolName = "tenantporter"

// MetaFunc builds the provenance block of an export.
type MetaFunc func(ctx context.Context) *model.Meta

// Deps are the collaborators shared by all resource ops.
type Deps struct {
	Console console.Console
	Logger  *slog.Logger
	// Meta is nil when exports carry no provenance.
	Meta MetaFunc
}

func (d Deps) withDefaults() Deps {
	if d.Console == nil {
		d.Console = console.NewRecorder()
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d
}

func (d Deps) meta(ctx context.Context, omit bool) *model.Meta {
	if omit || d.Meta == nil {
		return nil
	}
	return d.Meta(ctx)
}

// SessionMeta returns a MetaFunc describing exports taken from s.
func SessionMeta(s *tenant.Session, toolVersion string) MetaFunc {
	return func(ctx context.Context) *model.Meta {
		version, err := s.ServerVersion(ctx)
		if err != nil {
			s.Logger().Debug("could not read server version", "error", err)
		}
		return &model.Meta{
			Origin:            s.Host(),
			OriginAmVersion:   version,
			ExportedBy:        s.Username(),
			ExportDate:        time.Now().UTC().Format(time.RFC3339),
			ExportTool:        ToolName,
			ExportToolVersion: toolVersion,
		}
	}
}

// encodeJSON marshals v without escaping HTML characters, which are common
// in templates and scripts.
func encodeJSON(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
