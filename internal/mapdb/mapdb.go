// Package mapdb persists finalized object maps to SQLite. Each saved map is
// a "run": one map_runs row plus one map_objects row per object. Runs are
// identified by a generated UUID so repeated builds of the same scene can
// coexist.
package mapdb

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/cloud"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/objmap"
)

// ErrRunNotFound is returned when a run id does not exist. Callers check it
// with errors.Is.
var ErrRunNotFound = errors.New("map run not found")

// DB wraps the SQLite handle. Zero value is not usable; use Open.
type DB struct {
	*sql.DB
}

// Open opens or creates the database at path and brings the schema up to
// date.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// RunInfo summarizes one persisted run for listings.
type RunInfo struct {
	RunID       string    `json:"run_id"`
	Name        string    `json:"name"`
	ObjectCount int       `json:"object_count"`
	PointCount  int       `json:"point_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// SaveMap stores m as a new run and returns the generated run id. Name is a
// free-form label for listings; it does not need to be unique.
func (db *DB) SaveMap(name string, m *objmap.Map) (string, error) {
	runID := uuid.NewString()

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("starting save transaction: %w", err)
	}
	defer tx.Rollback()

	totalPoints := 0
	for _, rec := range m.Records() {
		totalPoints += rec.NumPoints
	}

	_, err = tx.Exec(`
		INSERT INTO map_runs (run_id, name, object_count, point_count, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		runID, name, m.Len(), totalPoints, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run %s: %w", runID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO map_objects (
			run_id, key, label, track_id,
			center_x, center_y, center_z,
			bbox_min_x, bbox_min_y, bbox_min_z,
			bbox_max_x, bbox_max_y, bbox_max_z,
			size_x, size_y, size_z,
			num_points, num_obs,
			first_frame, first_x1, first_y1, first_x2, first_y2,
			first_image, last_seen,
			points, embedding
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing object insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range m.Records() {
		_, err := stmt.Exec(
			runID, rec.Key, rec.Label, rec.TrackID,
			rec.Center.X, rec.Center.Y, rec.Center.Z,
			rec.BBoxMin.X, rec.BBoxMin.Y, rec.BBoxMin.Z,
			rec.BBoxMax.X, rec.BBoxMax.Y, rec.BBoxMax.Z,
			rec.Size.X, rec.Size.Y, rec.Size.Z,
			rec.NumPoints, rec.NumObs,
			rec.FirstFrame, rec.FirstBox[0], rec.FirstBox[1], rec.FirstBox[2], rec.FirstBox[3],
			rec.FirstImage, rec.LastSeenFrame,
			cloud.EncodeF32(rec.Points), encodeEmbedding(rec.Embedding),
		)
		if err != nil {
			return "", fmt.Errorf("inserting object %q: %w", rec.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run %s: %w", runID, err)
	}
	return runID, nil
}

// LoadMap reconstructs the object map saved under runID.
func (db *DB) LoadMap(runID string) (*objmap.Map, error) {
	var exists int
	err := db.QueryRow(`SELECT 1 FROM map_runs WHERE run_id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %q: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("checking run %q: %w", runID, err)
	}

	rows, err := db.Query(`
		SELECT key, label, track_id,
		       center_x, center_y, center_z,
		       bbox_min_x, bbox_min_y, bbox_min_z,
		       bbox_max_x, bbox_max_y, bbox_max_z,
		       size_x, size_y, size_z,
		       num_points, num_obs,
		       first_frame, first_x1, first_y1, first_x2, first_y2,
		       first_image, last_seen,
		       points, embedding
		FROM map_objects WHERE run_id = ? ORDER BY key`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying objects for run %q: %w", runID, err)
	}
	defer rows.Close()

	records := make(map[string]*objmap.Record)
	for rows.Next() {
		var rec objmap.Record
		var pointsBlob, embBlob []byte
		err := rows.Scan(
			&rec.Key, &rec.Label, &rec.TrackID,
			&rec.Center.X, &rec.Center.Y, &rec.Center.Z,
			&rec.BBoxMin.X, &rec.BBoxMin.Y, &rec.BBoxMin.Z,
			&rec.BBoxMax.X, &rec.BBoxMax.Y, &rec.BBoxMax.Z,
			&rec.Size.X, &rec.Size.Y, &rec.Size.Z,
			&rec.NumPoints, &rec.NumObs,
			&rec.FirstFrame, &rec.FirstBox[0], &rec.FirstBox[1], &rec.FirstBox[2], &rec.FirstBox[3],
			&rec.FirstImage, &rec.LastSeenFrame,
			&pointsBlob, &embBlob,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning object row: %w", err)
		}

		rec.Points, err = cloud.DecodeXYZ(pointsBlob)
		if err != nil {
			return nil, fmt.Errorf("decoding points for %q: %w", rec.Key, err)
		}
		rec.Embedding, err = decodeEmbedding(embBlob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %q: %w", rec.Key, err)
		}
		records[rec.Key] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading objects for run %q: %w", runID, err)
	}

	return objmap.FromRecords(records), nil
}

// ListRuns returns all saved runs, newest first.
func (db *DB) ListRuns() ([]RunInfo, error) {
	rows, err := db.Query(`
		SELECT run_id, name, object_count, point_count, created_at
		FROM map_runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var createdAtUnix int64
		if err := rows.Scan(&info.RunID, &info.Name, &info.ObjectCount, &info.PointCount, &createdAtUnix); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		info.CreatedAt = time.Unix(createdAtUnix, 0)
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and its objects.
func (db *DB) DeleteRun(runID string) error {
	res, err := db.Exec(`DELETE FROM map_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("deleting run %q: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting run %q: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("run %q: %w", runID, ErrRunNotFound)
	}
	return nil
}

// encodeEmbedding packs an appearance vector as little-endian float32, the
// same layout the point blobs use.
func encodeEmbedding(emb []float32) []byte {
	buf := make([]byte, 4*len(emb))
	for i, v := range emb {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) ([]float32, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(buf))
	}
	emb := make([]float32, len(buf)/4)
	for i := range emb {
		emb[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return emb, nil
}
