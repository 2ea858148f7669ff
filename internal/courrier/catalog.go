package courrier

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Division struct {
	Name            string   `json:"name" yaml:"name"`
	SubDirectorates []string `json:"subDirectorates" yaml:"subDirectorates"`
}

type Directorate struct {
	Name      string     `json:"name" yaml:"name"`
	Divisions []Division `json:"divisions" yaml:"divisions"`
}

// Catalog is the reference data endpoints are checked against: the external
// entities a courrier can come from or go to, and the internal hierarchy.
type Catalog struct {
	ExternalEntities []string      `json:"externalEntities" yaml:"externalEntities"`
	Directorates     []Directorate `json:"directorates" yaml:"directorates"`
}

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{
		ExternalEntities: []string{
			"Ministère de l'Intérieur",
			"Ministère de la Justice",
			"Ministère de l'Éducation Nationale",
			"Banque d'Algérie",
			"Cour des Comptes",
			"Sonelgaz",
			"Algérie Télécom",
		},
		Directorates: []Directorate{
			{
				Name: "Direction Générale du Budget",
				Divisions: []Division{
					{Name: "Division de la Préparation du Budget", SubDirectorates: []string{"Sous-Direction des Synthèses", "Sous-Direction des Dépenses de Fonctionnement"}},
					{Name: "Division de l'Exécution du Budget", SubDirectorates: []string{"Sous-Direction du Suivi", "Sous-Direction de la Réglementation"}},
				},
			},
			{
				Name: "Direction Générale des Impôts",
				Divisions: []Division{
					{Name: "Division de la Législation Fiscale", SubDirectorates: []string{"Sous-Direction des Études", "Sous-Direction du Contentieux"}},
					{Name: "Division des Opérations Fiscales", SubDirectorates: []string{"Sous-Direction du Recouvrement", "Sous-Direction du Contrôle"}},
				},
			},
			{
				Name: "Direction Générale du Trésor",
				Divisions: []Division{
					{Name: "Division de la Comptabilité", SubDirectorates: []string{"Sous-Direction de la Centralisation", "Sous-Direction des Opérations du Trésor"}},
				},
			},
		},
	}
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

// Check rejects catalogs with empty names or no entries.
func (c *Catalog) Check() error {
	if len(c.ExternalEntities) == 0 {
		return errors.New("no external entities")
	}
	if len(c.Directorates) == 0 {
		return errors.New("no directorates")
	}
	for _, e := range c.ExternalEntities {
		if strings.TrimSpace(e) == "" {
			return errors.New("empty external entity name")
		}
	}
	for _, d := range c.Directorates {
		if strings.TrimSpace(d.Name) == "" {
			return errors.New("empty directorate name")
		}
		for _, dv := range d.Divisions {
			if strings.TrimSpace(dv.Name) == "" {
				return fmt.Errorf("directorate %q: empty division name", d.Name)
			}
			for _, s := range dv.SubDirectorates {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("division %q: empty sub-directorate name", dv.Name)
				}
			}
		}
	}
	return nil
}

func (c *Catalog) HasEntity(name string) bool {
	for _, e := range c.ExternalEntities {
		if e == name {
			return true
		}
	}
	return false
}

// HasPath reports whether all three levels of ref exist and nest correctly.
func (c *Catalog) HasPath(ref HierarchyRef) bool {
	for _, d := range c.Directorates {
		if d.Name != ref.Directorate {
			continue
		}
		for _, dv := range d.Divisions {
			if dv.Name != ref.Division {
				continue
			}
			for _, s := range dv.SubDirectorates {
				if s == ref.SubDirectorate {
					return true
				}
			}
		}
	}
	return false
}

// FirstPath returns the first complete hierarchy path, used for seed data.
func (c *Catalog) FirstPath() (HierarchyRef, bool) {
	for _, d := range c.Directorates {
		for _, dv := range d.Divisions {
			if len(dv.SubDirectorates) > 0 {
				return HierarchyRef{Directorate: d.Name, Division: dv.Name, SubDirectorate: dv.SubDirectorates[0]}, true
			}
		}
	}
	return HierarchyRef{}, false
}
