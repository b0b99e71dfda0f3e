package config

import (
	"testing"

	"github.com/cognicore/residue/pkg/residue/catalog"
)

func TestLoaderAllEmpty(t *testing.T) {
	loader := Loader{}

	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}

	if comp.Catalog == nil {
		t.Fatal("Should have catalog (empty)")
	}
	if comp.Catalog.Len(catalog.Tech) != 0 {
		t.Errorf("Catalog should be empty, got %d tech terms", comp.Catalog.Len(catalog.Tech))
	}
	if comp.Settings.ProtectSet.MinSupport != 3 {
		t.Errorf("Should carry default settings, got %+v", comp.Settings.ProtectSet)
	}
}

func TestLoaderNonExistentTermFile(t *testing.T) {
	loader := Loader{EnvPath: "/nonexistent/environments.txt"}

	if _, err := loader.Load(); err == nil {
		t.Error("Should error on nonexistent env terms")
	}
}

func TestLoaderNonExistentSettings(t *testing.T) {
	loader := Loader{SettingsPath: "/nonexistent/audit.yaml"}

	if _, err := loader.Load(); err == nil {
		t.Error("Should error on nonexistent settings")
	}
}

func TestLoaderMergesCatalogAndTermFiles(t *testing.T) {
	dir := t.TempDir()
	loader := Loader{
		CatalogPath: writeFile(t, dir, "catalog.yaml", "tech: [sql, aks]\nenv: [prod]\nreg: [eastus]\n"),
		TechPath:    writeFile(t, dir, "exclusions.txt", "kafka SQL\n"),
		RegPath:     writeFile(t, dir, "regions.txt", "westeurope\n"),
	}

	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cat := comp.Catalog
	if cat.Len(catalog.Tech) != 3 {
		t.Errorf("Expected 3 tech terms, got %v", cat.Terms(catalog.Tech))
	}
	if !cat.Contains(catalog.Env, "prod") {
		t.Error("Should contain env prod")
	}
	if !cat.Contains(catalog.Reg, "westeurope") || !cat.Contains(catalog.Reg, "eastus") {
		t.Errorf("Unexpected regions %v", cat.Terms(catalog.Reg))
	}
}
