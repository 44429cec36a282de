package model

import (
	"context"
	"database/sql"
	"errors"

	"github.com/username/vertex/backend/src/models"
)

// CreateEntity inserts a tenant and sets its ID.
func CreateEntity(ctx context.Context, db *sql.DB, e *models.Entity) error {
	if e.Status == "" {
		e.Status = "enabled"
	}
	res, err := db.ExecContext(ctx, `INSERT INTO entities (name, mail, status) VALUES (?, ?, ?)`, e.Name, e.Mail, e.Status)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

// CreateCBU registers a bank-account identifier and sets its ID.
func CreateCBU(ctx context.Context, db *sql.DB, c *models.CBU) error {
	res, err := db.ExecContext(ctx, `INSERT INTO cbus (nro, banco, alias, cuit) VALUES (?, ?, ?, ?)`, c.Nro, c.Banco, c.Alias, c.CUIT)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

// LinkEntityCBU assigns a registered CBU to an entity.
func LinkEntityCBU(ctx context.Context, db *sql.DB, entityID, cbuID int64) error {
	_, err := db.ExecContext(ctx, `INSERT INTO entities_cbus (entity_id, cbu_id) VALUES (?, ?)`, entityID, cbuID)
	return err
}

func scanCBU(row *sql.Row) (*models.CBU, error) {
	var c models.CBU
	if err := row.Scan(&c.ID, &c.Nro, &c.Banco, &c.Alias, &c.CUIT); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetCBUByCUIT returns the first CBU registered for a tax id.
func GetCBUByCUIT(ctx context.Context, db *sql.DB, cuit string) (*models.CBU, error) {
	return scanCBU(db.QueryRowContext(ctx, `SELECT id, nro, banco, alias, cuit FROM cbus WHERE cuit = ? ORDER BY id LIMIT 1`, cuit))
}

func GetCBUByNro(ctx context.Context, db *sql.DB, nro string) (*models.CBU, error) {
	return scanCBU(db.QueryRowContext(ctx, `SELECT id, nro, banco, alias, cuit FROM cbus WHERE nro = ?`, nro))
}

// GetCBUByEntityID returns the first CBU owned by an entity.
func GetCBUByEntityID(ctx context.Context, db *sql.DB, entityID int64) (*models.CBU, error) {
	return scanCBU(db.QueryRowContext(ctx, `
	SELECT c.id, c.nro, c.banco, c.alias, c.cuit
	FROM cbus c
	JOIN entities_cbus ec ON ec.cbu_id = c.id
	WHERE ec.entity_id = ?
	ORDER BY c.id LIMIT 1`, entityID))
}

// GetEntityByCBUID returns the entity owning a CBU.
func GetEntityByCBUID(ctx context.Context, db *sql.DB, cbuID int64) (*models.Entity, error) {
	var e models.Entity
	err := db.QueryRowContext(ctx, `
	SELECT e.id, e.name, e.mail, e.status
	FROM entities e
	JOIN entities_cbus ec ON ec.entity_id = e.id
	WHERE ec.cbu_id = ?
	ORDER BY e.id LIMIT 1`, cbuID).Scan(&e.ID, &e.Name, &e.Mail, &e.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}
