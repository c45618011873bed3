package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"club-live-engine/cache"
	"club-live-engine/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Exporter stores an archive snapshot and returns where it landed.
type Exporter interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// ArchiveService tears down the live footprint of archived tournaments.
type ArchiveService struct {
	DB       *gorm.DB
	Cache    cache.Store
	Exporter Exporter // nil disables export
}

func NewArchiveService(db *gorm.DB, store cache.Store, exporter Exporter) *ArchiveService {
	return &ArchiveService{DB: db, Cache: store, Exporter: exporter}
}

type ArchiveSnapshot struct {
	Tournament models.Tournament `json:"tournament"`
	Results    []models.Result   `json:"results"`
	LiveState  *models.LiveState `json:"live_state,omitempty"`
	ArchivedAt time.Time         `json:"archived_at"`
}

type TeardownReport struct {
	TournamentID  string `json:"tournament_id"`
	ExportURL     string `json:"export_url,omitempty"`
	TablesRemoved int64  `json:"tables_removed"`
	SeatsRemoved  int64  `json:"seats_removed"`
}

// ArchiveKey is the object key for a tournament's snapshot.
func ArchiveKey(t *models.Tournament) string {
	return fmt.Sprintf("archives/%s-%s.json", slug.Make(t.Name), t.ID)
}

// Teardown exports a snapshot, then deletes the live state, tables and seats
// and evicts the cached timer. Only archived tournaments qualify.
func (s *ArchiveService) Teardown(ctx context.Context, tournamentID string) (*TeardownReport, error) {
	var t models.Tournament
	if err := s.DB.WithContext(ctx).First(&t, "id = ?", tournamentID).Error; err != nil {
		return nil, notFound(err, "tournament", tournamentID)
	}
	if t.Status != models.TournamentStatusArchived {
		return nil, fmt.Errorf("%w (status %s)", ErrNotArchived, t.Status)
	}

	report := &TeardownReport{TournamentID: tournamentID}

	if s.Exporter != nil {
		snap := ArchiveSnapshot{Tournament: t, ArchivedAt: time.Now().UTC()}
		if err := s.DB.WithContext(ctx).Where("tournament_id = ?", tournamentID).
			Order("finish_position ASC").Find(&snap.Results).Error; err != nil {
			return nil, fmt.Errorf("load results: %w", err)
		}
		var ls models.LiveState
		if err := s.DB.WithContext(ctx).Where("tournament_id = ?", tournamentID).Limit(1).Find(&ls).Error; err != nil {
			return nil, fmt.Errorf("load live state: %w", err)
		}
		if ls.ID != "" {
			snap.LiveState = &ls
		}

		body, err := json.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
		url, err := s.Exporter.Upload(ctx, ArchiveKey(&t), body, "application/json")
		if err != nil {
			return nil, fmt.Errorf("export snapshot: %w", err)
		}
		report.ExportURL = url
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tableIDs := tx.Model(&models.TournamentTable{}).Select("id").Where("tournament_id = ?", tournamentID)
		res := tx.Where("table_id IN (?)", tableIDs).Delete(&models.Seat{})
		if res.Error != nil {
			return fmt.Errorf("delete seats: %w", res.Error)
		}
		report.SeatsRemoved = res.RowsAffected

		res = tx.Where("tournament_id = ?", tournamentID).Delete(&models.TournamentTable{})
		if res.Error != nil {
			return fmt.Errorf("delete tables: %w", res.Error)
		}
		report.TablesRemoved = res.RowsAffected

		if err := tx.Where("tournament_id = ?", tournamentID).Delete(&models.LiveState{}).Error; err != nil {
			return fmt.Errorf("delete live state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.Cache.Delete(ctx, cache.TimerKey(tournamentID), cache.ActiveIDsKey); err != nil {
		log.Printf("[Archive] Cache eviction failed for %s: %v", tournamentID, err)
	}

	log.Printf("[Archive] 📦 Tournament %s torn down (%d tables, %d seats)", tournamentID, report.TablesRemoved, report.SeatsRemoved)
	return report, nil
}

// SweepArchived tears down every archived tournament that still has a live
// state row.
func (s *ArchiveService) SweepArchived(ctx context.Context) (int, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.LiveState{}).
		Joins("JOIN tournaments ON tournaments.id = live_states.tournament_id").
		Where("tournaments.status = ?", models.TournamentStatusArchived).
		Pluck("live_states.tournament_id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("list archived live states: %w", err)
	}

	done := 0
	for _, id := range ids {
		if _, err := s.Teardown(ctx, id); err != nil {
			log.Printf("[Archive] Teardown failed for %s: %v", id, err)
			continue
		}
		done++
	}
	return done, nil
}
