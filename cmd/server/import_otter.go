package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joesh-del/video-management/internal/core"
	"github.com/joesh-del/video-management/internal/core/content"
	"github.com/joesh-del/video-management/internal/core/model"
	"github.com/joesh-del/video-management/internal/ingest"
	"github.com/joesh-del/video-management/internal/logger"
	"github.com/joesh-del/video-management/internal/store"
)

var importPersona string

func init() {
	importOtterCmd.Flags().StringVar(&importPersona, "persona", "", "Persona name to associate imported recordings with")
}

var importOtterCmd = &cobra.Command{
	Use:   "import-otter <export-dir>",
	Short: "Import Otter transcript exports (.txt) from a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log, err := logger.New(cfg.Server.Mode)
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := store.Open(cfg.DB.Path)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer db.Close()

		// No LLM involved in imports.
		engine := core.NewEngine(db, nil, cfg.Generation, log)
		ctx := context.Background()

		personaID := ""
		if importPersona != "" {
			p, err := engine.Personas.ResolveByName(ctx, importPersona)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("persona %q not found", importPersona)
			}
			personaID = p.ID
			log.Info("associating imports with persona", "persona", p.Name)
		}

		exports, err := filepath.Glob(filepath.Join(args[0], "*.txt"))
		if err != nil {
			return err
		}
		log.Info("scanning export directory", "dir", args[0], "files", len(exports))

		imported, skipped, failed := 0, 0, 0
		for _, path := range exports {
			name := filepath.Base(path)
			exists, err := engine.Content.ExistsByOriginalFilename(ctx, name)
			if err != nil {
				return err
			}
			if exists {
				log.Debug("already imported, skipping", "file", name)
				skipped++
				continue
			}

			if err := importOne(ctx, engine, path, personaID); err != nil {
				log.Warn("import failed", "file", name, "error", err)
				failed++
				continue
			}
			imported++
		}

		log.Info("import complete", "imported", imported, "skipped", skipped, "failed", failed)
		return nil
	},
}

func importOne(ctx context.Context, engine *core.Engine, path, personaID string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	parsed, err := ingest.ParseOtterExport(string(raw))
	if err != nil {
		return err
	}

	recordedAt := parsed.RecordingDate
	extra := map[string]string{}
	if recordedAt == nil {
		// Archive folder conventions are the fallback date source.
		pathDate, eventName := ingest.PathMetadata(path)
		recordedAt = pathDate
		if eventName != "" {
			extra["event_name"] = eventName
		}
	}

	item, err := engine.Content.CreateContentItem(ctx, content.CreateParams{
		SourceType:       model.SourceAudio,
		Title:            parsed.Title,
		PersonaID:        personaID,
		OriginalFilename: filepath.Base(path),
		DurationSeconds:  parsed.DurationSeconds,
		RecordedAt:       recordedAt,
		Speakers:         parsed.Speakers,
		Keywords:         parsed.Keywords,
		Provider:         "otter_ai",
		Extra:            extra,
	})
	if err != nil {
		return err
	}

	_, err = engine.IngestTranscript(ctx, item.ID, "otter_ai", "", parsed.Segments)
	return err
}
