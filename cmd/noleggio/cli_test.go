package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/erazemk/noleggio/internal/catalog"
	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/objects"
	"github.com/erazemk/noleggio/internal/store"
)

// run executes the CLI with args in an empty working directory and returns
// its standard output.
func run(c *qt.C, args ...string) (string, error) {
	c.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func newCLITest(c *qt.C) string {
	c.Chdir(c.TempDir())
	for _, k := range []string{"NOLEGGIO_DB_DSN", "NOLEGGIO_DB_DRIVER", "NOLEGGIO_STORAGE_BACKEND", "NOLEGGIO_REDIS_ADDR"} {
		c.Unsetenv(k)
	}
	return filepath.Join(c.TempDir(), "noleggio.sqlite3")
}

func openTestDB(c *qt.C, path string) *db.DB {
	c.Helper()
	database, err := db.Open("sqlite", path)
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { database.Close() })
	return database
}

func TestLoadConfigFlags(t *testing.T) {
	c := qt.New(t)
	newCLITest(c)

	cmd := newServeCmd()
	c.Assert(cmd.Flags().Set(dbDSNFlag, "custom.sqlite3"), qt.IsNil)
	c.Assert(cmd.Flags().Set(addrFlag, ":9090"), qt.IsNil)

	cfg, err := loadConfig(cmd)
	c.Assert(err, qt.IsNil)
	c.Check(cfg.DB.DSN, qt.Equals, "custom.sqlite3")
	c.Check(cfg.Addr, qt.Equals, ":9090")
	// Unset flags leave the defaults alone.
	c.Check(cfg.DB.Driver, qt.Equals, "sqlite")
	c.Check(cfg.BaseURL, qt.Equals, "http://localhost:8080")
}

func TestInitAndMigrate(t *testing.T) {
	c := qt.New(t)
	path := newCLITest(c)

	out, err := run(c, "init", "--db", path, "--user", "titolare")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Username: titolare")

	_, err = run(c, "init", "--db", path, "--user", "titolare")
	c.Assert(err, qt.ErrorMatches, `user "titolare" already exists`)

	_, err = run(c, "migrate", "--db", path)
	c.Assert(err, qt.IsNil)

	database := openTestDB(c, path)
	u, err := store.GetUserByUsername(context.Background(), database, "titolare")
	c.Assert(err, qt.IsNil)
	c.Assert(u, qt.IsNotNil)
	c.Assert(u.Role, qt.Equals, model.RoleAdmin)
}

func TestSeedAndSweep(t *testing.T) {
	c := qt.New(t)
	path := newCLITest(c)
	ctx := context.Background()

	_, err := run(c, "migrate", "--db", path)
	c.Assert(err, qt.IsNil)

	dir := c.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	f, err := os.Create(filepath.Join(dir, "cassa.png"))
	c.Assert(err, qt.IsNil)
	c.Assert(png.Encode(f, img), qt.IsNil)
	f.Close()

	seed := filepath.Join(dir, "seed.yaml")
	err = os.WriteFile(seed, []byte(`
inventario:
  - title: Cassa attiva
    category: Diffusori Audio
    stock: 4
    price: 45
    image: cassa.png
portfolio:
  - title: Festa aziendale
    category: PROGETTI
`), 0o644)
	c.Assert(err, qt.IsNil)

	out, err := run(c, "seed", "--dry-run", seed)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "2 items are valid.")

	_, err = run(c, "seed", "--db", path, seed)
	c.Assert(err, qt.IsNil)

	database := openTestDB(c, path)
	repo := &store.Catalog{DB: database}
	inventory, err := repo.List(ctx, model.KindInventory, "")
	c.Assert(err, qt.IsNil)
	c.Assert(inventory, qt.HasLen, 1)
	c.Assert(inventory[0].HasImage(), qt.IsTrue)
	row, err := store.GetProduct(ctx, database, inventory[0].ID)
	c.Assert(err, qt.IsNil)
	c.Assert(row.Price.String(), qt.Equals, "45")

	// An old object nothing points at.
	orphan := "orfano-1600000000000.jpg"
	objs := objects.NewDBStore(database, "http://localhost:8080")
	c.Assert(objs.Upload(ctx, objects.Bucket, orphan, strings.NewReader("x"), "image/jpeg"), qt.IsNil)

	// The company logo lives in the same bucket and is referenced from settings.
	logo := "logo-1600000000000.png"
	c.Assert(objs.Upload(ctx, objects.Bucket, logo, strings.NewReader("x"), "image/png"), qt.IsNil)
	c.Assert(store.SaveCompanySettings(ctx, database, &model.CompanySettings{
		CompanyName: "QuattroSound",
		CompanyLogo: objs.PublicURL(objects.Bucket, logo),
	}), qt.IsNil)

	out, err = run(c, "sweep", "--db", path)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, orphan)
	c.Assert(out, qt.Not(qt.Contains), logo)
	c.Assert(out, qt.Contains, "1 of 3 objects are orphaned.")

	_, err = run(c, "sweep", "--db", path, "--apply")
	c.Assert(err, qt.IsNil)

	names, err := objs.List(ctx, objects.Bucket)
	c.Assert(err, qt.IsNil)
	name, _ := catalog.ObjectNameFromURL(inventory[0].Image())
	sort.Strings(names)
	want := []string{logo, name}
	sort.Strings(want)
	c.Assert(names, qt.DeepEquals, want)
}
