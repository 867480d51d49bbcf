package datasets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/bethyw/pkg/areas"
	"github.com/hazyhaar/bethyw/pkg/importer"
)

func writeFile(t *testing.T, dir, name, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
}

func TestImportCompletePopden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "areas.csv", "Local authority code,Name (eng),Name (cym)\nW06000023,Powys,Powys\nW06000011,Swansea,Abertawe\n")
	writeFile(t, dir, "complete-popu1009-area.csv", "AuthorityCode,2014,2015\nW06000023,5180.6,5180.7\nW06000011,379.7,379.7\n")
	writeFile(t, dir, "complete-popu1009-pop.csv", "AuthorityCode,2014,2015\nW06000023,132642,132447\nW06000011,241282,242316\n")
	writeFile(t, dir, "complete-popu1009-popden.csv", "AuthorityCode,2014,2015\nW06000023,25.6,25.6\nW06000011,635.5,638.2\n")

	reg, err := Default()
	require.NoError(t, err)
	src, err := reg.Get("complete-popden")
	require.NoError(t, err)

	as := areas.New()
	_, err = Import(as, &reg.Areas, dir, importer.Options{})
	require.NoError(t, err)

	opts := importer.Options{Filters: importer.Filters{Areas: importer.NewStringFilter("w06000011")}}
	res, err := Import(as, src, dir, opts)
	require.NoError(t, err)
	assert.Len(t, res.Reports, 3)
	assert.Equal(t, 3, res.Merged())
	assert.Zero(t, res.Skipped())
	assert.Positive(t, res.Bytes())

	swansea, err := as.Area("w06000011")
	require.NoError(t, err)
	assert.Equal(t, []string{"area", "dens", "pop"}, swansea.Codenames())

	powys, err := as.Area("W06000023")
	require.NoError(t, err)
	assert.Zero(t, powys.Size())
}

func TestImportMissingFile(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	src, err := reg.Get("popden")
	require.NoError(t, err)

	_, err = Import(areas.New(), src, t.TempDir(), importer.Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "popu1009.json")
}

func TestImportStopsAtFirstFailingFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "complete-popu1009-area.csv", "AuthorityCode,2014\nW06000023,1\n")
	writeFile(t, dir, "complete-popu1009-pop.csv", "AuthorityCode,2014\nW06000023,x\n")

	reg, err := Default()
	require.NoError(t, err)
	src, err := reg.Get("complete-popden")
	require.NoError(t, err)

	as := areas.New()
	res, err := Import(as, src, dir, importer.Options{})
	assert.ErrorIs(t, err, importer.ErrFormat)
	assert.Len(t, res.Reports, 2)
	assert.Equal(t, 1, res.Merged())

	powys, err := as.Area("W06000023")
	require.NoError(t, err)
	assert.Equal(t, []string{"area"}, powys.Codenames())
}
