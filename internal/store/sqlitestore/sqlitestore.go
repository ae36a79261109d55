package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"biaslens/internal/catalog"
	"biaslens/internal/model"
	"biaslens/internal/profile"
)

var (
	ErrNotFound     = errors.New("sqlitestore: not found")
	ErrSurveyExists = errors.New("sqlitestore: survey responses already exist")
	ErrUserExists   = errors.New("sqlitestore: user already exists")
)

// DB is the SQLite-backed store for users, articles, feeds, surveys and the
// reference bias table.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		d.SetMaxOpenConns(1)
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS users (
	  email TEXT PRIMARY KEY,
	  password TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS source_bias (
	  source TEXT PRIMARY KEY,
	  bias TEXT NOT NULL,
	  confidence TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS articles (
	  id TEXT PRIMARY KEY,
	  headline TEXT NOT NULL,
	  url TEXT NOT NULL DEFAULT '',
	  source TEXT NOT NULL DEFAULT '',
	  abstract TEXT NOT NULL DEFAULT '',
	  category TEXT NOT NULL DEFAULT '',
	  image_url TEXT NOT NULL DEFAULT '',
	  lean TEXT NOT NULL DEFAULT '',
	  article_date INTEGER NOT NULL DEFAULT 0,
	  date_added INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_articles_added ON articles(date_added);
	CREATE TABLE IF NOT EXISTS feed (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  email TEXT NOT NULL,
	  flag TEXT NOT NULL DEFAULT '',
	  article_id TEXT NOT NULL,
	  access_date INTEGER NOT NULL,
	  likes INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_feed_email ON feed(email);
	CREATE TABLE IF NOT EXISTS survey_responses (
	  email TEXT PRIMARY KEY,
	  q1 INTEGER, q2 INTEGER, q3 INTEGER, q4 INTEGER, q5 INTEGER
	);
	`)
	return err
}

// AddUser registers an email. It fails with ErrUserExists on a duplicate.
func (d *DB) AddUser(ctx context.Context, email, password string) error {
	res, err := d.sql.ExecContext(ctx, `INSERT INTO users(email, password) VALUES(?,?) ON CONFLICT(email) DO NOTHING`, email, password)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserExists
	}
	return nil
}

func (d *DB) EmailExists(ctx context.Context, email string) (bool, error) {
	var one int
	err := d.sql.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email=?`, email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// PutSourceBias upserts reference rows.
func (d *DB) PutSourceBias(ctx context.Context, rows []catalog.Row) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, `INSERT INTO source_bias(source, bias, confidence) VALUES(?,?,?)
			ON CONFLICT(source) DO UPDATE SET bias=excluded.bias, confidence=excluded.confidence`, r.Source, r.Bias, r.Confidence); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadBiasRows implements catalog.Source.
func (d *DB) LoadBiasRows(ctx context.Context) ([]catalog.Row, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT source, bias, confidence FROM source_bias ORDER BY source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []catalog.Row
	for rows.Next() {
		var r catalog.Row
		if err := rows.Scan(&r.Source, &r.Bias, &r.Confidence); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertArticles stores articles, stamping them as added at now. Existing
// ids keep their original date_added.
func (d *DB) UpsertArticles(ctx context.Context, articles []model.Article, now time.Time) (int, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	n := 0
	for _, a := range articles {
		if a.ID == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO articles(id, headline, url, source, abstract, category, image_url, lean, article_date, date_added)
			VALUES(?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(id) DO UPDATE SET headline=excluded.headline, url=excluded.url, source=excluded.source,
			  abstract=excluded.abstract, category=excluded.category, image_url=excluded.image_url,
			  lean=excluded.lean, article_date=excluded.article_date`,
			a.ID, a.Headline, a.URL, a.Source, a.Abstract, a.Category, a.ImageURL, a.Lean, a.PublishedAt.Unix(), now.Unix())
		if err != nil {
			return n, err
		}
		n++
	}
	return n, tx.Commit()
}

const articleCols = `id, headline, url, source, abstract, category, image_url, lean, article_date, date_added`

// ArticlesAddedOn returns articles added on day's UTC date, optionally
// restricted to categories, oldest first.
func (d *DB) ArticlesAddedOn(ctx context.Context, day time.Time, categories []string) ([]model.Article, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	q := `SELECT ` + articleCols + ` FROM articles WHERE date_added>=? AND date_added<?`
	args := []any{start.Unix(), start.Add(24 * time.Hour).Unix()}
	if len(categories) > 0 {
		q += ` AND category IN (?` + strings.Repeat(",?", len(categories)-1) + `)`
		for _, c := range categories {
			args = append(args, c)
		}
	}
	q += ` ORDER BY date_added, id`
	return d.queryArticles(ctx, q, args...)
}

// RecentArticles returns up to limit articles, newest first.
func (d *DB) RecentArticles(ctx context.Context, limit int) ([]model.Article, error) {
	return d.queryArticles(ctx, `SELECT `+articleCols+` FROM articles ORDER BY date_added DESC, article_date DESC, id LIMIT ?`, limit)
}

func (d *DB) queryArticles(ctx context.Context, q string, args ...any) ([]model.Article, error) {
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Article
	for rows.Next() {
		var a model.Article
		var published, added int64
		if err := rows.Scan(&a.ID, &a.Headline, &a.URL, &a.Source, &a.Abstract, &a.Category, &a.ImageURL, &a.Lean, &published, &added); err != nil {
			return nil, err
		}
		a.PublishedAt = time.Unix(published, 0).UTC()
		a.AddedAt = time.Unix(added, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertFeed records that articleID was served to email under flag.
func (d *DB) InsertFeed(ctx context.Context, email, flag, articleID string, now time.Time) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `INSERT INTO feed(email, flag, article_id, access_date, likes) VALUES(?,?,?,?,0)`, email, flag, articleID, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertFeedOnce is InsertFeed that does nothing if email already has a row
// for articleID. It returns the id of the existing or new row.
func (d *DB) InsertFeedOnce(ctx context.Context, email, flag, articleID string, now time.Time) (int64, error) {
	var id int64
	err := d.sql.QueryRowContext(ctx, `SELECT id FROM feed WHERE email=? AND article_id=? ORDER BY id LIMIT 1`, email, articleID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	return d.InsertFeed(ctx, email, flag, articleID, now)
}

// UpdateLikes sets the reaction on a feed row: positive for approval,
// negative for disapproval, zero to clear.
func (d *DB) UpdateLikes(ctx context.Context, feedID int64, likes int) error {
	res, err := d.sql.ExecContext(ctx, `UPDATE feed SET likes=? WHERE id=?`, likes, feedID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LikedSources counts, per article source, the feed rows email approved.
func (d *DB) LikedSources(ctx context.Context, email string) (map[string]int, error) {
	return d.sourceCounts(ctx, email, `f.likes > 0`)
}

// DislikedSources counts, per article source, the feed rows email disapproved.
func (d *DB) DislikedSources(ctx context.Context, email string) (map[string]int, error) {
	return d.sourceCounts(ctx, email, `f.likes < 0`)
}

func (d *DB) sourceCounts(ctx context.Context, email, cond string) (map[string]int, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT a.source, COUNT(*) FROM feed f JOIN articles a ON a.id=f.article_id
		WHERE f.email=? AND `+cond+` GROUP BY a.source`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, err
		}
		out[src] = n
	}
	return out, rows.Err()
}

// FeedCounts tallies the flags of email's feed rows.
func (d *DB) FeedCounts(ctx context.Context, email string) (map[string]int, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT flag, COUNT(*) FROM feed WHERE email=? GROUP BY flag`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var flag string
		var n int
		if err := rows.Scan(&flag, &n); err != nil {
			return nil, err
		}
		out[flag] = n
	}
	return out, rows.Err()
}

// SaveSurvey stores a first set of answers; a second call fails with
// ErrSurveyExists. Use UpdateSurvey to change answers.
func (d *DB) SaveSurvey(ctx context.Context, email string, answers []model.Answer) error {
	vals, err := surveyArgs(answers)
	if err != nil {
		return err
	}
	res, err := d.sql.ExecContext(ctx, `INSERT INTO survey_responses(email, q1, q2, q3, q4, q5) VALUES(?,?,?,?,?,?)
		ON CONFLICT(email) DO NOTHING`, append([]any{email}, vals...)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSurveyExists
	}
	return nil
}

func (d *DB) UpdateSurvey(ctx context.Context, email string, answers []model.Answer) error {
	vals, err := surveyArgs(answers)
	if err != nil {
		return err
	}
	res, err := d.sql.ExecContext(ctx, `UPDATE survey_responses SET q1=?, q2=?, q3=?, q4=?, q5=? WHERE email=?`, append(vals, email)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadSurvey returns the stored answers, or ErrNotFound.
func (d *DB) LoadSurvey(ctx context.Context, email string) ([]model.Answer, error) {
	var q [profile.SurveyLength]sql.NullBool
	err := d.sql.QueryRowContext(ctx, `SELECT q1, q2, q3, q4, q5 FROM survey_responses WHERE email=?`, email).
		Scan(&q[0], &q[1], &q[2], &q[3], &q[4])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := make([]model.Answer, len(q))
	for i, v := range q {
		if v.Valid {
			out[i] = model.AnswerFromPtr(&v.Bool)
		}
	}
	return out, nil
}

func surveyArgs(answers []model.Answer) ([]any, error) {
	if len(answers) != profile.SurveyLength {
		return nil, profile.ErrSurveyLength
	}
	out := make([]any, len(answers))
	for i, a := range answers {
		if p := a.Ptr(); p != nil {
			out[i] = *p
		}
	}
	return out, nil
}

// Stats reports row counts per table, for diagnostics.
func (d *DB) Stats(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int)
	for _, t := range []string{"users", "source_bias", "articles", "feed", "survey_responses"} {
		var n int
		if err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+t).Scan(&n); err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, nil
}
