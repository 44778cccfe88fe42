package service

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
)

func buildZip(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return zr
}

func TestResolveExtensionsByMode(t *testing.T) {
	exts, err := resolveExtensions(models.ModeJava, nil)
	require.NoError(t, err)
	assert.True(t, exts[".java"])
	assert.False(t, exts[".py"])

	exts, err = resolveExtensions(models.ModeUniversal, nil)
	require.NoError(t, err)
	assert.True(t, exts[".java"])
	assert.True(t, exts[".py"])
	assert.True(t, exts[".md"])
}

func TestResolveExtensionsCustom(t *testing.T) {
	exts, err := resolveExtensions(models.ModeCustom, []string{"go", ".MOD", " sum "})
	require.NoError(t, err)
	assert.True(t, exts[".go"])
	assert.True(t, exts[".mod"])
	assert.True(t, exts[".sum"])

	_, err = resolveExtensions(models.ModeCustom, nil)
	require.Error(t, err)

	_, err = resolveExtensions(models.ConsolidationMode("klingon"), nil)
	require.Error(t, err)
}

func TestIsTestPath(t *testing.T) {
	assert.True(t, isTestPath("src/test/java/AppTest.java"))
	assert.True(t, isTestPath("src/__tests__/app.js"))
	assert.True(t, isTestPath("src/app.test.ts"))
	assert.True(t, isTestPath("tests/test_models.py"))
	assert.True(t, isTestPath("src/main/java/CalculatorTest.java"))
	assert.False(t, isTestPath("src/main/java/App.java"))
	assert.False(t, isTestPath("src/contest/entry.py"))
}

func TestSkippableEntry(t *testing.T) {
	assert.True(t, skippableEntry("node_modules/lodash/index.js"))
	assert.True(t, skippableEntry("app/__pycache__/mod.pyc"))
	assert.True(t, skippableEntry("src/.env"))
	assert.False(t, skippableEntry("src/main.py"))
}

func TestConsolidateArchive(t *testing.T) {
	zr := buildZip(t, map[string]string{
		"src/Main.java":             "public class Main {}\n",
		"src/Util.java":             "public class Util {}\n",
		"src/test/java/MyTest.java": "public class MyTest {}\n",
		"README.md":                 "docs",
		"node_modules/dep/index.js": "junk",
		"target/classes/Main.class": "binary",
	})

	exts, err := resolveExtensions(models.ModeJava, nil)
	require.NoError(t, err)

	project, err := consolidateArchive(zr, "juan-perez", exts, false)
	require.NoError(t, err)
	assert.Equal(t, "juan-perez", project.Name)
	assert.Equal(t, 2, project.FileCount)
	assert.Contains(t, project.Content, "PROYECTO: juan-perez")
	assert.Contains(t, project.Content, "===== src/Main.java =====")
	assert.Contains(t, project.Content, "public class Util {}")
	assert.NotContains(t, project.Content, "MyTest")
	assert.NotContains(t, project.Content, "README")
	require.Len(t, project.Skipped, 1)
	assert.Contains(t, project.Skipped[0], "MyTest.java")
}

func TestConsolidateArchiveIncludeTests(t *testing.T) {
	zr := buildZip(t, map[string]string{
		"src/Main.java":             "public class Main {}\n",
		"src/test/java/MyTest.java": "public class MyTest {}\n",
	})

	exts, err := resolveExtensions(models.ModeJava, nil)
	require.NoError(t, err)

	project, err := consolidateArchive(zr, "juan", exts, true)
	require.NoError(t, err)
	assert.Equal(t, 2, project.FileCount)
	assert.Contains(t, project.Content, "MyTest")
}

func TestConsolidateArchiveNoMatches(t *testing.T) {
	zr := buildZip(t, map[string]string{"notes.txt": "hola"})

	exts, err := resolveExtensions(models.ModeJava, nil)
	require.NoError(t, err)

	_, err = consolidateArchive(zr, "juan", exts, false)
	require.Error(t, err)
}

func consolidateForTest(t *testing.T, name string, files map[string]string) *ConsolidatedProject {
	t.Helper()
	exts, err := resolveExtensions(models.ModeUniversal, nil)
	require.NoError(t, err)
	project, err := consolidateArchive(buildZip(t, files), name, exts, false)
	require.NoError(t, err)
	return project
}

func TestAnalyzeSimilarityIdenticalProjects(t *testing.T) {
	a := consolidateForTest(t, "ana", map[string]string{"main.py": "print('hola')\n", "util.py": "x = 1\n"})
	b := consolidateForTest(t, "beto", map[string]string{"app/main.py": "print('hola')\n", "app/util.py": "x = 1\n"})
	c := consolidateForTest(t, "carla", map[string]string{"main.py": "print('chau')\n"})

	report := analyzeSimilarity([]*ConsolidatedProject{a, b, c})
	require.Len(t, report.IdenticalGroups, 1)
	assert.Equal(t, []string{"ana", "beto"}, report.IdenticalGroups[0])
}

func TestAnalyzeSimilarityPartialCopies(t *testing.T) {
	shared := map[string]string{
		"a.py": "aaa\n",
		"b.py": "bbb\n",
		"c.py": "ccc\n",
	}
	filesA := map[string]string{"d.py": "solo-ana\n"}
	filesB := map[string]string{"e.py": "solo-beto\n"}
	for k, v := range shared {
		filesA[k] = v
		filesB[k] = v
	}

	a := consolidateForTest(t, "ana", filesA)
	b := consolidateForTest(t, "beto", filesB)

	report := analyzeSimilarity([]*ConsolidatedProject{a, b})
	require.Len(t, report.PartialCopies, 1)
	pc := report.PartialCopies[0]
	assert.Equal(t, "ana", pc.StudentA)
	assert.Equal(t, "beto", pc.StudentB)
	assert.Equal(t, 3, pc.SharedFiles)
	assert.InDelta(t, 0.6, pc.Similarity, 0.01)
}

func TestAnalyzeSimilarityDuplicatedFiles(t *testing.T) {
	a := consolidateForTest(t, "ana", map[string]string{"util.py": "compartido\n", "propio_a.py": "a\n"})
	b := consolidateForTest(t, "beto", map[string]string{"helpers/util.py": "compartido\n", "propio_b.py": "b\n"})

	report := analyzeSimilarity([]*ConsolidatedProject{a, b})
	require.NotEmpty(t, report.DuplicatedFiles)
	assert.Equal(t, "util.py", report.DuplicatedFiles[0].FileName)
	assert.Equal(t, []string{"ana", "beto"}, report.DuplicatedFiles[0].Students)
}

func TestGroupStudentArchives(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{
		"entregas/juan-perez/proyecto.zip",
		"entregas/juan-perez/extra.zip",
		"entregas/ana-gomez/tp.zip",
		"entregas/ana-gomez/notas.txt",
		"suelto.zip",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	groups := groupStudentArchives(zr)
	require.Len(t, groups["juan-perez"], 2)
	require.Len(t, groups["ana-gomez"], 1)
	_, hasLoose := groups["suelto"]
	assert.False(t, hasLoose)
}

func TestSplitExtensions(t *testing.T) {
	assert.Equal(t, []string{"go", "mod"}, splitExtensions("go, mod"))
	assert.Empty(t, splitExtensions("  , "))
	assert.Empty(t, splitExtensions(""))
}
