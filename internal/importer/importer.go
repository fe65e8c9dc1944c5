// Package importer drives a whole ingestion run: every archive matched by
// the glob pattern, every text member, every section and row, handed to
// the reconciliation engine inside one all-or-nothing store transaction.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"fjacquet/alipay-ledger/internal/archive"
	"fjacquet/alipay-ledger/internal/logging"
	"fjacquet/alipay-ledger/internal/models"
	"fjacquet/alipay-ledger/internal/parsererror"
	"fjacquet/alipay-ledger/internal/recon"
	"fjacquet/alipay-ledger/internal/statement"
	"fjacquet/alipay-ledger/internal/store"
)

// Summary reports what one import run did.
type Summary struct {
	Archives int
	Members  int
	Rows     int // body rows seen
	Applied  int // rows that created or updated durable records
	Ignored  int // rows dropped by the relevance filter or already known
	Skipped  int // malformed short rows skipped
}

// Importer wires archives through the statement scanner into the engine.
type Importer struct {
	// MemberSuffix selects which archive members hold statement text.
	// Members with other names are passed over silently.
	MemberSuffix string

	store   store.Store
	matcher recon.NameMatcher
	logger  logging.Logger
}

// New creates an importer over st. A nil matcher keeps the engine default.
func New(st store.Store, matcher recon.NameMatcher, logger logging.Logger) *Importer {
	return &Importer{MemberSuffix: ".txt", store: st, matcher: matcher, logger: logger}
}

// Run imports every archive matched by pattern inside one transaction.
// Any unrecovered error aborts the run, names the failing file, and
// leaves the store unchanged.
func (imp *Importer) Run(ctx context.Context, pattern string) (*Summary, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no archives match %q", pattern)
	}
	sort.Strings(paths)

	summary := &Summary{}
	err = imp.store.InTransaction(ctx, func(repo store.Repository) error {
		engine := recon.NewEngine(repo, imp.matcher, imp.logger)
		for _, path := range paths {
			imp.logger.Info("importing archive",
				logging.Field{Key: logging.FieldArchive, Value: path})
			if err := imp.importArchive(ctx, repo, engine, path, summary); err != nil {
				return fmt.Errorf("importing %s: %w", path, err)
			}
			summary.Archives++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (imp *Importer) importArchive(ctx context.Context, repo store.Repository, engine *recon.Engine, path string, summary *Summary) error {
	return archive.Walk(path, func(m *archive.Member, r io.Reader) error {
		if imp.MemberSuffix != "" && !strings.HasSuffix(m.Name, imp.MemberSuffix) {
			imp.logger.Debug("passing over non-statement member",
				logging.Field{Key: logging.FieldMember, Value: m.Name})
			return nil
		}
		imp.logger.Info("processing statement member",
			logging.Field{Key: logging.FieldMember, Value: m.Name},
			logging.Field{Key: logging.FieldBytes, Value: m.Size})

		handler := &memberHandler{
			ctx:     ctx,
			repo:    repo,
			engine:  engine,
			logger:  imp.logger,
			summary: summary,
			member:  m.Name,
		}
		if err := statement.Scan(r, handler); err != nil {
			if errors.Is(err, statement.ErrDelimitersNotFound) {
				return &parsererror.StructuralError{FilePath: m.Name, Reason: err.Error()}
			}
			return fmt.Errorf("%s: %w", m.Name, err)
		}
		summary.Members++

		imp.logger.Debug("statement member processed",
			logging.Field{Key: logging.FieldMember, Value: m.Name},
			logging.Field{Key: logging.FieldBytes, Value: m.BytesRead()},
			logging.Field{Key: logging.FieldRow, Value: handler.bodyLine})
		return nil
	})
}

// memberHandler is the scan context for one statement member: the owner
// account discovered in the header, the resolved label mapping, and the
// running row counters. Its lifetime is exactly one member's processing.
type memberHandler struct {
	ctx      context.Context
	repo     store.Repository
	engine   *recon.Engine
	logger   logging.Logger
	summary  *Summary
	member   string
	owner    *models.Account
	labels   statement.LabelMap
	bodyLine int
}

func (h *memberHandler) HeaderLine(line string) error {
	username, ok := statement.OwnerUsername(line)
	if !ok {
		return nil
	}
	owner, err := h.getOrCreateOwner(username)
	if err != nil {
		return err
	}
	h.owner = owner
	return nil
}

func (h *memberHandler) getOrCreateOwner(username string) (*models.Account, error) {
	acct, err := h.repo.AccountByUsername(h.ctx, username)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	acct = &models.Account{Username: username}
	if err := h.repo.CreateAccount(h.ctx, acct); err != nil {
		return nil, fmt.Errorf("creating owner account %q: %w", username, err)
	}
	h.logger.Info("statement owner identified",
		logging.Field{Key: logging.FieldAccount, Value: username})
	return acct, nil
}

func (h *memberHandler) LabelLine(line string) error {
	labels, err := statement.ResolveLabels(line)
	if err != nil {
		return &parsererror.StructuralError{FilePath: h.member, Reason: err.Error()}
	}
	h.labels = labels
	return nil
}

func (h *memberHandler) BodyLine(line string) error {
	h.bodyLine++
	h.summary.Rows++
	if h.owner == nil {
		return &parsererror.StructuralError{
			FilePath: h.member,
			Reason:   "no account identifier found before body section",
		}
	}

	row, err := statement.ParseRow(line, h.labels)
	if err != nil {
		if errors.Is(err, parsererror.ErrShortRow) {
			h.summary.Skipped++
			h.logger.Warn("skipping malformed row",
				logging.Field{Key: logging.FieldMember, Value: h.member},
				logging.Field{Key: logging.FieldRow, Value: h.bodyLine},
				logging.Field{Key: logging.FieldReason, Value: err.Error()})
			return nil
		}
		return &parsererror.RowError{Line: h.bodyLine, Err: err}
	}

	applied, err := h.engine.Apply(h.ctx, h.owner, row)
	if err != nil {
		return &parsererror.RowError{Line: h.bodyLine, Err: err}
	}
	if applied {
		h.summary.Applied++
	} else {
		h.summary.Ignored++
	}
	return nil
}

func (h *memberHandler) FooterLine(line string) error {
	name, ok := statement.OwnerFullName(line)
	if !ok || h.owner == nil || name == "" || h.owner.FullName == name {
		return nil
	}
	h.owner.FullName = name
	if err := h.repo.UpdateAccount(h.ctx, h.owner); err != nil {
		return fmt.Errorf("recording owner display name: %w", err)
	}
	return nil
}
