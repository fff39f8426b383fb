//go:build integration

package integration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	Name   string
	Driver string
	URL    string
	DSN    string
	Schema []string
}

var binary string

func databases(t *testing.T) []Database {
	dir, err := filepath.Abs(filepath.Join("test_projects", "sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "test.db")

	dbs := []Database{{
		Name:   "sqlite",
		Driver: "sqlite3",
		URL:    "sqlite://" + path,
		DSN:    path + "?_foreign_keys=on",
		Schema: []string{
			`CREATE TABLE authors (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, email VARCHAR(120) UNIQUE)`,
			`CREATE TABLE books (id INTEGER PRIMARY KEY AUTOINCREMENT, author_id INTEGER NOT NULL REFERENCES authors(id), title TEXT NOT NULL, price DECIMAL(8,2), published_at TIMESTAMP)`,
		},
	}}

	if url := os.Getenv("FLASHSEED_POSTGRES_URL"); url != "" {
		dbs = append(dbs, Database{
			Name: "postgresql", Driver: "postgres", URL: url, DSN: url,
			Schema: []string{
				`DROP TABLE IF EXISTS books`,
				`DROP TABLE IF EXISTS authors`,
				`CREATE TABLE authors (id SERIAL PRIMARY KEY, name TEXT NOT NULL, email VARCHAR(120) UNIQUE)`,
				`CREATE TABLE books (id SERIAL PRIMARY KEY, author_id INTEGER NOT NULL REFERENCES authors(id), title TEXT NOT NULL, price NUMERIC(8,2), published_at TIMESTAMP)`,
			},
		})
	}
	if url := os.Getenv("FLASHSEED_MYSQL_URL"); url != "" {
		dbs = append(dbs, Database{
			Name: "mysql", Driver: "mysql", URL: url, DSN: strings.TrimPrefix(url, "mysql://"),
			Schema: []string{
				`DROP TABLE IF EXISTS books`,
				`DROP TABLE IF EXISTS authors`,
				`CREATE TABLE authors (id INT AUTO_INCREMENT PRIMARY KEY, name VARCHAR(100) NOT NULL, email VARCHAR(120) UNIQUE)`,
				`CREATE TABLE books (id INT AUTO_INCREMENT PRIMARY KEY, author_id INT NOT NULL, title VARCHAR(200) NOT NULL, price DECIMAL(8,2), published_at DATETIME, FOREIGN KEY (author_id) REFERENCES authors(id))`,
			},
		})
	}
	return dbs
}

func TestMain(m *testing.M) {
	fmt.Println("🔨 Building flashseed...")
	binary, _ = filepath.Abs(filepath.Join("test_projects", "flashseed"))
	build := exec.Command("go", "build", "-o", binary, "../..")
	if output, err := build.CombinedOutput(); err != nil {
		fmt.Printf("❌ Failed to build: %v\n%s", err, output)
		os.Exit(1)
	}

	code := m.Run()

	fmt.Println("🧹 Cleaning up...")
	os.RemoveAll("test_projects")
	os.Exit(code)
}

func TestAllDatabases(t *testing.T) {
	for _, db := range databases(t) {
		t.Run(db.Name, func(t *testing.T) {
			testDatabase(t, db)
		})
	}
}

func testDatabase(t *testing.T, db Database) {
	testDir := filepath.Join("test_projects", db.Name)
	if err := os.MkdirAll(testDir, 0755); err != nil {
		t.Fatalf("Failed to create test dir: %v", err)
	}

	t.Run("01_Setup", func(t *testing.T) {
		testSetup(t, testDir, db)
	})

	t.Run("02_Validate", func(t *testing.T) {
		output := run(t, testDir, "validate", "books")
		if !strings.Contains(output, "ready to populate") {
			t.Errorf("Unexpected validate output: %s", output)
		}
	})

	t.Run("03_Priority", func(t *testing.T) {
		output := run(t, testDir, "priority", "books")
		if !strings.Contains(output, "1. authors") {
			t.Errorf("Expected authors as prerequisite, got: %s", output)
		}
	})

	t.Run("04_Populate_With_Prerequisites", func(t *testing.T) {
		run(t, testDir, "populate", "books", "-n", "20", "--batch-size", "7", "--with-prerequisites", "--save-run", "--seed", "42")
		expectRows(t, db, "authors", 5)
		expectRows(t, db, "books", 20)
	})

	t.Run("05_Analyze", func(t *testing.T) {
		output := run(t, testDir, "analyze", "books")
		if !strings.Contains(output, "books.author_id -> authors.id") || !strings.Contains(output, "rows: 5") {
			t.Errorf("Unexpected analyze output: %s", output)
		}
	})

	t.Run("06_Replay_Run", func(t *testing.T) {
		runs, _ := filepath.Glob(filepath.Join(testDir, "db/export/run_books_*.json"))
		if len(runs) == 0 {
			t.Fatal("No saved run found")
		}
		run(t, testDir, "populate", "--from", filepath.Join("db/export", filepath.Base(runs[0])))
		expectRows(t, db, "books", 40)
	})

	t.Run("07_Dry_Run", func(t *testing.T) {
		output := run(t, testDir, "populate", "authors", "--dry-run")
		if !strings.Contains(output, "nothing inserted") {
			t.Errorf("Unexpected dry run output: %s", output)
		}
		expectRows(t, db, "authors", 5)
	})

	t.Run("08_Export_SQL", func(t *testing.T) {
		output := run(t, testDir, "export", "books", "--format", "sql")
		if !strings.Contains(output, "Export completed") {
			t.Errorf("Unexpected export output: %s", output)
		}
	})

	t.Run("09_Truncate", func(t *testing.T) {
		run(t, testDir, "populate", "books", "-n", "3", "--truncate", "--force")
		expectRows(t, db, "books", 3)
	})
}

func testSetup(t *testing.T, testDir string, db Database) {
	conn, err := sql.Open(db.Driver, db.DSN)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	for _, stmt := range db.Schema {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("Failed to create schema: %v", err)
		}
	}

	cfg := map[string]interface{}{
		"database": map[string]string{"provider": db.Name, "url": db.URL},
		"defaults": map[string]interface{}{"record_count": 10},
		"tables": map[string]interface{}{
			"authors": map[string]interface{}{"record_count": 5},
		},
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	if err := os.WriteFile(filepath.Join(testDir, "flashseed.config.json"), data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command(binary, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("flashseed %s failed: %v\nOutput: %s", strings.Join(args, " "), err, output)
	}
	return string(output)
}

func expectRows(t *testing.T, db Database, table string, want int) {
	t.Helper()
	conn, err := sql.Open(db.Driver, db.DSN)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	if count != want {
		t.Errorf("Expected %d rows in %s, got %d", want, table, count)
	}
}
