package service

import (
	"context"
	"fmt"

	"github.com/courrier-mf/courrier/internal/courrier"
)

// SeedSamples registers the demonstration courriers shown on a fresh dashboard.
// Endpoints are drawn from the service catalog so every sample validates.
func SeedSamples(ctx context.Context, svc Service) error {
	cat := svc.Catalog()
	path, ok := cat.FirstPath()
	if !ok || len(cat.ExternalEntities) == 0 {
		return fmt.Errorf("seed: catalog has no complete hierarchy path or entity")
	}
	internal := courrier.Endpoint{Hierarchy: &path}
	external := courrier.ExternalEndpoint(cat.ExternalEntities[0])

	samples := []*courrier.Document{
		{Subject: "Invoice_001.pdf", Type: courrier.TypeReceivedExternal, DateArrive: "2023-05-15", DateEnregistrer: "2023-05-16", Status: courrier.StatusInProgress, Priority: courrier.PriorityHigh, From: external, To: internal},
		{Subject: "Contract_ABC.pdf", Type: courrier.TypeSentExternal, DateArrive: "2023-05-10", DateEnregistrer: "2023-05-11", DateRetour: "2023-05-20", Status: courrier.StatusArchived, From: internal, To: external},
		{Subject: "Report_Q1.pdf", Type: courrier.TypeSentInternal, DateArrive: "2023-04-01", DateEnregistrer: "2023-04-02", Status: courrier.StatusPending, Priority: courrier.PriorityLow, From: internal, To: external},
		{Subject: "OldRecord_2022.pdf", Type: courrier.TypeMinisterial, DateArrive: "2022-12-31", DateEnregistrer: "2023-01-02", Status: courrier.StatusArchived, From: external, To: internal},
	}
	for _, d := range samples {
		if _, err := svc.Create(ctx, d); err != nil {
			return fmt.Errorf("seed %s: %w", d.Subject, err)
		}
	}
	return nil
}
