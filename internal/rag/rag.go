// Package rag assembles retrieval-augmented prompts and drives continuation
// streams into the document.
package rag

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"inkwell/internal/chunker"
	"inkwell/internal/config"
	"inkwell/internal/document"
	"inkwell/internal/embedding"
	"inkwell/internal/fault"
	"inkwell/internal/llm"
	"inkwell/internal/memory"
	"inkwell/internal/models"
)

// Orchestrator wires the embedding provider, memory store, and completion
// streamer into the continuation pipeline: embed -> search -> assemble ->
// stream -> apply, strictly in that order.
type Orchestrator struct {
	provider embedding.Provider
	store    memory.Store
	streamer llm.Streamer
	cfg      *config.RAGConfig

	// busy guards against two streams writing into one document.
	busy atomic.Bool
}

func NewOrchestrator(provider embedding.Provider, store memory.Store, streamer llm.Streamer, cfg *config.RAGConfig) *Orchestrator {
	return &Orchestrator{provider: provider, store: store, streamer: streamer, cfg: cfg}
}

// BuildPrompt computes the bounded continuation prompt for the document's
// full plain text. Only the trailing window is sent verbatim; older content
// must surface through retrieval. Validation failures happen before any
// embedding or network call.
func (o *Orchestrator) BuildPrompt(ctx context.Context, fullText, instruction, novelID string) (string, error) {
	runes := []rune(strings.TrimSpace(fullText))
	if len(runes) < o.cfg.MinContext {
		return "", fault.New(fault.Validation, "rag.BuildPrompt",
			"not enough text to continue from (%d chars, need %d)", len(runes), o.cfg.MinContext)
	}

	trailing := string(runes)
	if len(runes) > o.cfg.TrailingWindow {
		trailing = string(runes[len(runes)-o.cfg.TrailingWindow:])
	}

	queryVec, err := o.provider.Embed(ctx, trailing)
	if err != nil {
		return "", err
	}

	matches, err := o.store.Search(ctx, memory.Query{
		Vector:    queryVec,
		NovelID:   novelID,
		TopK:      o.cfg.TopK,
		Threshold: o.cfg.SimilarityThreshold,
	})
	if err != nil {
		if !o.cfg.AllowDegradedRecall {
			return "", err
		}
		// Deliberate policy: a broken memory store degrades to a context-free
		// continuation instead of blocking the writer.
		log.Warn().Err(err).Msg("Memory search failed, continuing without recalled context")
		matches = nil
	}

	return assemble(trailing, instruction, matches), nil
}

func assemble(trailing, instruction string, matches []models.Match) string {
	var sb strings.Builder
	if len(matches) > 0 {
		contents := make([]string, len(matches))
		for i, m := range matches {
			contents[i] = m.Fragment.Content
		}
		sb.WriteString(models.RecalledContextHeader)
		sb.WriteString("\n")
		sb.WriteString(strings.Join(contents, models.ContextSeparator))
		sb.WriteString("\n\n")
		sb.WriteString(models.CurrentTextHeader)
		sb.WriteString("\n")
	}
	sb.WriteString(trailing)
	if instruction != "" {
		sb.WriteString("\n\n")
		sb.WriteString(models.InstructionHeader)
		sb.WriteString(" ")
		sb.WriteString(instruction)
		sb.WriteString("\n")
		sb.WriteString(models.ContinueDirective)
	}
	return sb.String()
}

// Continue runs one continuation into doc. A second trigger while one is
// streaming is rejected, never interleaved. Partial text stays in the
// document when the stream fails.
func (o *Orchestrator) Continue(ctx context.Context, doc *document.Document, novelID, instruction string) error {
	if !o.busy.CompareAndSwap(false, true) {
		return fault.New(fault.Validation, "rag.Continue", "a continuation is already streaming into this document")
	}
	defer o.busy.Store(false)

	prompt, err := o.BuildPrompt(ctx, doc.PlainText(), instruction, novelID)
	if err != nil {
		return err
	}

	doc.SetCaretEnd()
	return o.streamer.Stream(ctx, prompt, doc.ApplyIncrement)
}

// Busy reports whether a continuation is in flight, for disabling the
// trigger in the UI.
func (o *Orchestrator) Busy() bool { return o.busy.Load() }

// SyncChapter replaces the chapter's fragments wholesale: delete everything
// scoped to the chapter, then re-chunk and re-embed the full text. No
// incremental diffing. Returns the number of fragments written.
func (o *Orchestrator) SyncChapter(ctx context.Context, novelID, chapterID, plainText string) (int, error) {
	if err := o.store.DeleteByChapter(ctx, chapterID); err != nil {
		return 0, err
	}
	pieces := chunker.Split(plainText, o.cfg.ChunkSize)
	for _, piece := range pieces {
		vec, err := o.provider.Embed(ctx, piece.Content)
		if err != nil {
			return piece.Index, err
		}
		f := &models.Fragment{
			NovelID:    novelID,
			ChapterID:  chapterID,
			Content:    piece.Content,
			Embedding:  vec,
			Kind:       models.KindChapter,
			ChunkIndex: piece.Index,
		}
		if err := o.store.Upsert(ctx, f); err != nil {
			return piece.Index, err
		}
	}
	log.Info().Str("chapter", chapterID).Int("fragments", len(pieces)).Msg("Synced chapter into memory")
	return len(pieces), nil
}

// SaveSetting stores one setting entry (character, world note, item, or
// outline section) as a formatted, embedded fragment.
func (o *Orchestrator) SaveSetting(ctx context.Context, novelID string, kind models.FragmentKind, name, description, section string) (*models.Fragment, error) {
	if !kind.IsValid() || kind == models.KindChapter {
		return nil, fault.New(fault.Validation, "rag.SaveSetting", "invalid setting kind %q", kind)
	}
	if name == "" || description == "" {
		return nil, fault.New(fault.Validation, "rag.SaveSetting", "name and description are required")
	}
	content := models.SettingRecord(kind, name, description)
	vec, err := o.provider.Embed(ctx, content)
	if err != nil {
		return nil, err
	}
	f := &models.Fragment{
		NovelID:   novelID,
		Content:   content,
		Embedding: vec,
		Kind:      kind,
		Name:      name,
		Section:   section,
	}
	if err := o.store.Upsert(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// DeleteFragment removes one fragment by explicit user action.
func (o *Orchestrator) DeleteFragment(ctx context.Context, id string) error {
	return o.store.Delete(ctx, id)
}
