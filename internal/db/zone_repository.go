package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/geozone/internal/geom"
	"github.com/udisondev/geozone/internal/zone"
)

// ZoneRepository хранит определения зон в PostgreSQL.
//
// Вершины и метаданные лежат в JSONB, fingerprint (blake2b) позволяет
// пропускать запись неизмененных зон.
type ZoneRepository struct {
	db *pgxpool.Pool
}

// NewZoneRepository создаёт новый ZoneRepository.
func NewZoneRepository(db *pgxpool.Pool) *ZoneRepository {
	return &ZoneRepository{db: db}
}

// LoadAll загружает все зоны, упорядоченные по id.
func (r *ZoneRepository) LoadAll(ctx context.Context) ([]zone.Definition, error) {
	rows, err := r.db.Query(ctx, `SELECT id, points, metadata FROM zones ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying zones: %w", err)
	}
	defer rows.Close()

	var defs []zone.Definition
	for rows.Next() {
		var (
			d               zone.Definition
			rawPts, rawMeta []byte
		)
		if err := rows.Scan(&d.ID, &rawPts, &rawMeta); err != nil {
			return nil, fmt.Errorf("scanning zone row: %w", err)
		}
		if err := decode(&d, rawPts, rawMeta); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating zone rows: %w", err)
	}

	return defs, nil
}

// Get загружает одну зону. Возвращает false, если зоны нет.
func (r *ZoneRepository) Get(ctx context.Context, id string) (zone.Definition, bool, error) {
	d := zone.Definition{ID: id}
	var rawPts, rawMeta []byte

	err := r.db.QueryRow(ctx, `SELECT points, metadata FROM zones WHERE id = $1`, id).Scan(&rawPts, &rawMeta)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zone.Definition{}, false, nil
		}
		return zone.Definition{}, false, fmt.Errorf("querying zone %q: %w", id, err)
	}

	if err := decode(&d, rawPts, rawMeta); err != nil {
		return zone.Definition{}, false, err
	}

	return d, true, nil
}

// execer: общее подмножество *pgxpool.Pool и pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Save вставляет или обновляет зону. Строка не переписывается, если
// fingerprint совпадает; возвращает true, если запись изменилась.
func (r *ZoneRepository) Save(ctx context.Context, d zone.Definition) (bool, error) {
	return save(ctx, r.db, d)
}

// SaveAll сохраняет зоны в одной транзакции и возвращает число измененных строк.
func (r *ZoneRepository) SaveAll(ctx context.Context, defs []zone.Definition) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // после Commit ошибка ожидаема
	}()

	changed := 0
	for _, d := range defs {
		ok, err := save(ctx, tx, d)
		if err != nil {
			return 0, err
		}
		if ok {
			changed++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing zones: %w", err)
	}
	return changed, nil
}

func save(ctx context.Context, db execer, d zone.Definition) (bool, error) {
	pts := d.Points
	if pts == nil {
		pts = []geom.Point{}
	}
	rawPts, err := json.Marshal(pts)
	if err != nil {
		return false, fmt.Errorf("encoding points of zone %q: %w", d.ID, err)
	}

	meta := d.Metadata
	if meta == nil {
		meta = zone.Metadata{}
	}
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return false, fmt.Errorf("encoding metadata of zone %q: %w", d.ID, err)
	}

	fp := d.Fingerprint()

	tag, err := db.Exec(ctx, `
		INSERT INTO zones (id, points, metadata, fingerprint, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET points = EXCLUDED.points,
		    metadata = EXCLUDED.metadata,
		    fingerprint = EXCLUDED.fingerprint,
		    updated_at = now()
		WHERE zones.fingerprint <> EXCLUDED.fingerprint`,
		d.ID, string(rawPts), string(rawMeta), fp[:],
	)
	if err != nil {
		return false, fmt.Errorf("saving zone %q: %w", d.ID, err)
	}

	return tag.RowsAffected() > 0, nil
}

// Delete удаляет зону. Возвращает false, если зоны не было.
func (r *ZoneRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting zone %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func decode(d *zone.Definition, rawPts, rawMeta []byte) error {
	if err := json.Unmarshal(rawPts, &d.Points); err != nil {
		return fmt.Errorf("decoding points of zone %q: %w", d.ID, err)
	}
	if err := json.Unmarshal(rawMeta, &d.Metadata); err != nil {
		return fmt.Errorf("decoding metadata of zone %q: %w", d.ID, err)
	}
	if len(d.Metadata) == 0 {
		d.Metadata = nil
	}
	return nil
}
