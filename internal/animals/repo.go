package animals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"animalia/pkg/models"
)

// ErrDuplicate is returned when a record with the same nom already exists.
var ErrDuplicate = errors.New("animal already exists")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// ListQuery filters the animal listing.
type ListQuery struct {
	Q      string // keyword search in nom / nom_commun
	Statut string // exact IUCN status
	Limit  int
	Offset int
}

// Create inserts one animal. Duplicate nom yields ErrDuplicate so the
// handler can answer 409 instead of 500.
func (r *Repo) Create(ctx context.Context, a models.Animal) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO animaux (nom, nom_commun, rang, statut_uicn, ordre, famille, genre, descriptions, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.Nom,
		nullable(a.NomCommun),
		nullable(a.Rang),
		nullable(a.StatutUICN),
		nullable(a.Ordre),
		nullable(a.Famille),
		nullable(a.Genre),
		nullable(a.Descriptions),
		nullable(a.ImageURL),
	)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return ErrDuplicate
		}
		return fmt.Errorf("insert %q: %w", a.Nom, err)
	}
	return nil
}

// GetByNom fetches one animal by scientific name; nil when not found.
func (r *Repo) GetByNom(ctx context.Context, nom string) (*models.Animal, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT nom, nom_commun, rang, statut_uicn, ordre, famille, genre, descriptions, image_url
		FROM animaux
		WHERE nom = ?
	`, nom)

	a, err := scanAnimal(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByNom: %w", err)
	}
	return a, nil
}

// Count returns the number of animals matching the query.
func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

// List returns a page of animals matching the query, ordered by nom.
func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Animal, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Animal, 0, q.Limit)
	for rows.Next() {
		a, err := scanAnimal(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func scanAnimal(scan func(dest ...any) error) (*models.Animal, error) {
	var (
		a                       models.Animal
		nomCommun, rang, statut sql.NullString
		ordre, famille, genre   sql.NullString
		descriptions, imageURL  sql.NullString
	)
	if err := scan(
		&a.Nom, &nomCommun, &rang, &statut, &ordre, &famille, &genre, &descriptions, &imageURL,
	); err != nil {
		return nil, err
	}
	a.NomCommun = nomCommun.String
	a.Rang = rang.String
	a.StatutUICN = statut.String
	a.Ordre = ordre.String
	a.Famille = famille.String
	a.Genre = genre.String
	a.Descriptions = descriptions.String
	a.ImageURL = imageURL.String
	return &a, nil
}

// buildListSQL builds either the COUNT(*) or the SELECT variant of the
// listing query.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `
		SELECT nom, nom_commun, rang, statut_uicn, ordre, famille, genre, descriptions, image_url
		FROM animaux
	`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM animaux`
	}

	var where []string
	var args []any

	if strings.TrimSpace(q.Q) != "" {
		where = append(where, "(LOWER(nom) LIKE ? OR LOWER(nom_commun) LIKE ?)")
		kw := "%" + strings.ToLower(strings.TrimSpace(q.Q)) + "%"
		args = append(args, kw, kw)
	}

	if strings.TrimSpace(q.Statut) != "" {
		where = append(where, "statut_uicn = ?")
		args = append(args, strings.ToUpper(strings.TrimSpace(q.Statut)))
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY nom ASC LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
