// internal/delivery/archive.go
//
// Folio – Delivery subsystem: MySQL archive.
//
// Context
//   Keeps a copy of every submission so nothing is lost when the mail
//   provider has a bad day.  Rows go into a single table:
//
//      CREATE TABLE contact_submission (
//        id           BIGINT AUTO_INCREMENT PRIMARY KEY,
//        submitted_at DATETIME(6)   NOT NULL,
//        from_name    VARCHAR(255)  NOT NULL,
//        from_email   VARCHAR(255)  NOT NULL,
//        to_email     VARCHAR(255)  NOT NULL,
//        message      TEXT          NOT NULL
//      );
//
//   The table name comes from config and is checked against a strict
//   identifier pattern before it is spliced into SQL.
//
//------------------------------------------------------------------------------

package delivery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/folio/internal/contact"
)

// ErrBadTable is returned by NewArchive for unsafe table names.
var ErrBadTable = errors.New("archive: invalid table name")

var tableRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

type archiveRow struct {
	SubmittedAt time.Time `db:"submitted_at"`
	FromName    string    `db:"from_name"`
	FromEmail   string    `db:"from_email"`
	ToEmail     string    `db:"to_email"`
	Message     string    `db:"message"`
}

// Archive implements contact.Delivery by inserting one row per submission.
type Archive struct {
	db    *sqlx.DB
	query string
	now   func() time.Time
}

// NewArchive prepares the INSERT for table.
func NewArchive(db *sqlx.DB, table string) (*Archive, error) {
	if !tableRe.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrBadTable, table)
	}
	q := fmt.Sprintf(
		"INSERT INTO `%s` (submitted_at, from_name, from_email, to_email, message) "+
			"VALUES (:submitted_at, :from_name, :from_email, :to_email, :message)", table)
	return &Archive{db: db, query: q, now: time.Now}, nil
}

// Send inserts p.
func (a *Archive) Send(ctx context.Context, p contact.Payload) error {
	row := archiveRow{
		SubmittedAt: a.now().UTC(),
		FromName:    p.FromName,
		FromEmail:   p.FromEmail,
		ToEmail:     p.ToEmail,
		Message:     p.Message,
	}
	if _, err := a.db.NamedExecContext(ctx, a.query, row); err != nil {
		return fmt.Errorf("archive insert: %w", err)
	}
	return nil
}
