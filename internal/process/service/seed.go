package service

import (
	"fmt"
	"time"

	"qualis/internal/process/models"
	"qualis/pkg/domain"
)

// Default process catalog applied when a tenant's store is empty. Each entry
// runs through the governance invariant and is forced active.
var defaultProcesses = []struct {
	name       string
	typ        models.ProcessType
	activities []string
}{
	{
		name: "Human Resources",
		typ:  models.TypeSupport,
		activities: []string{
			"Recruitment",
			"Onboarding",
			"Training and competence",
			"Performance review",
		},
	},
	{
		name: "Leadership",
		typ:  models.TypeManagement,
		activities: []string{
			"Strategic planning",
			"Management review",
			"Internal communication",
		},
	},
	{
		name: "Continual Improvement",
		typ:  models.TypeManagement,
		activities: []string{
			"Nonconformity handling",
			"Corrective actions",
			"Internal audits",
			"Improvement opportunities",
		},
	},
	{
		name: "Purchasing",
		typ:  models.TypeSupport,
		activities: []string{
			"Supplier evaluation",
			"Purchase orders",
			"Incoming inspection",
		},
	},
}

// SeedDefaults builds the default process catalog.
func SeedDefaults(now time.Time) []*models.Process {
	out := make([]*models.Process, 0, len(defaultProcesses))
	for i, seed := range defaultProcesses {
		activities := make([]models.ActivityRecord, 0, len(seed.activities))
		for j, name := range seed.activities {
			activities = append(activities, models.ActivityRecord{
				ID:       domain.ActivityID(domain.NewID()),
				Name:     name,
				Sequence: j,
			})
		}
		p, err := models.NewProcess(
			domain.ProcessID(domain.NewID()),
			fmt.Sprintf("PRO-%03d", i+1),
			seed.name,
			seed.typ,
			activities,
			now,
		)
		if err != nil {
			// Seed data is static; a failure here is a programming error.
			panic(err)
		}
		p.Status = models.StatusActive
		out = append(out, p)
	}
	return out
}
