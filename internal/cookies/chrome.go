package cookies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	. "github.com/roelfdiedericks/chatpilot/internal/logging"
)

// ChromeStore reads cookies from a local Chrome profile's SQLite store.
type ChromeStore struct {
	profileDir string
	dec        *decrypter
}

// NewChromeStore reads from profileDir ("" = the default Chrome profile).
// password is the Safe Storage password; "" uses the environment or the
// platform default.
func NewChromeStore(profileDir, password string) *ChromeStore {
	if profileDir == "" {
		profileDir = DefaultChromeProfile()
	}
	return &ChromeStore{profileDir: profileDir, dec: newDecrypter(password)}
}

// DefaultChromeProfile returns the platform's default Chrome profile path.
func DefaultChromeProfile() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default")
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "Google", "Chrome", "User Data", "Default")
	default:
		return filepath.Join(home, ".config", "google-chrome", "Default")
	}
}

// dbPath finds the cookie database; newer Chrome keeps it under Network/.
func (s *ChromeStore) dbPath() (string, error) {
	for _, p := range []string{
		filepath.Join(s.profileDir, "Network", "Cookies"),
		filepath.Join(s.profileDir, "Cookies"),
	} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no Chrome cookie database under %s", s.profileDir)
}

// Read returns the allow-listed cookies for spec's origins.
func (s *ChromeStore) Read(ctx context.Context, spec Spec) ([]Candidate, error) {
	src, err := s.dbPath()
	if err != nil {
		return nil, err
	}

	// Chrome holds the live database locked; read a copy
	tmp, err := copyToTemp(src)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	db, err := sql.Open("sqlite3", "file:"+tmp+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open cookie database: %w", err)
	}
	defer db.Close()

	metaVersion := readMetaVersion(ctx, db)

	names := spec.Names()
	if len(names) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}

	rows, err := db.QueryContext(ctx,
		`SELECT host_key, name, path, value, encrypted_value FROM cookies WHERE name IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query cookies: %w", err)
	}
	defer rows.Close()

	hosts := spec.Hosts()
	if spec.ApexDomain != "" {
		hosts = append(hosts, normalizeDomain(spec.ApexDomain))
	}

	var out []Candidate
	for rows.Next() {
		var (
			host, name, path, value string
			enc                     []byte
		)
		if err := rows.Scan(&host, &name, &path, &value, &enc); err != nil {
			return nil, fmt.Errorf("scan cookie: %w", err)
		}
		if !hostMatches(host, hosts) {
			continue
		}
		if value == "" && len(enc) > 0 {
			value, err = s.dec.decrypt(ctx, enc, metaVersion)
			if err != nil {
				if errors.Is(err, errUnsupportedCipher) {
					L_warn("cookies: skipping cookie with unsupported encryption", "name", name, "host", host)
					continue
				}
				return nil, fmt.Errorf("decrypt %s: %w", name, err)
			}
		}
		out = append(out, Candidate{Name: name, Value: value, Domain: host, Path: path})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}

	L_debug("cookies: read native store", "profile", s.profileDir, "matched", len(out), "metaVersion", metaVersion)
	return out, nil
}

func readMetaVersion(ctx context.Context, db *sql.DB) int {
	var v string
	if err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'version'`).Scan(&v); err != nil {
		return 0
	}
	n, _ := strconv.Atoi(v)
	return n
}

func copyToTemp(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open cookie database: %w", err)
	}
	defer in.Close()

	out, err := os.CreateTemp("", "chatpilot-cookies-*.db")
	if err != nil {
		return "", fmt.Errorf("create temp copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("copy cookie database: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}
