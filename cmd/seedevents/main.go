package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/opsboard/usage_insights/backend/internal/config"
	"github.com/opsboard/usage_insights/backend/internal/database"
)

// seedevents populates a development database with sample policies,
// memberships, and a year of usage events so the dashboard has data to
// render.
func main() {
	var (
		policyCount = flag.Int("policies", 4, "number of policies to create")
		userCount   = flag.Int("users", 25, "number of users to spread across policies")
		eventCount  = flag.Int("events", 5000, "number of usage events to insert")
		days        = flag.Int("days", 365, "spread events over this many days ending now")
	)
	flag.Parse()

	cfg, err := config.Load(config.Options{})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	policyNames := []string{"engineering", "support", "research", "operations", "marketing", "finance"}
	policyIDs := make([]uuid.UUID, 0, *policyCount)
	for i := 0; i < *policyCount && i < len(policyNames); i++ {
		id := uuid.New()
		limit := int64((i + 1) * 500_000)
		_, err := pool.Exec(ctx,
			`INSERT INTO policies (id, name, token_limit) VALUES ($1, $2, $3)
			 ON CONFLICT (name) DO UPDATE SET token_limit = EXCLUDED.token_limit`,
			id, policyNames[i], limit)
		if err != nil {
			log.Fatalf("seed policy %s: %v", policyNames[i], err)
		}
		var existing uuid.UUID
		if err := pool.QueryRow(ctx, `SELECT id FROM policies WHERE name = $1`, policyNames[i]).Scan(&existing); err != nil {
			log.Fatalf("lookup policy %s: %v", policyNames[i], err)
		}
		policyIDs = append(policyIDs, existing)
		log.Printf("seeded policy %s (limit %d)", policyNames[i], limit)
	}

	for i := 0; i < *userCount; i++ {
		policyID := policyIDs[rng.Intn(len(policyIDs))]
		_, err := pool.Exec(ctx,
			`INSERT INTO policy_members (policy_id, user_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			policyID, uuid.New())
		if err != nil {
			log.Fatalf("seed member: %v", err)
		}
	}
	log.Printf("seeded %d members", *userCount)

	now := time.Now().UTC()
	window := time.Duration(*days) * 24 * time.Hour
	for i := 0; i < *eventCount; i++ {
		occurred := now.Add(-time.Duration(rng.Int63n(int64(window))))
		policyID := policyIDs[rng.Intn(len(policyIDs))]
		input := int64(rng.Intn(4000) + 100)
		output := int64(rng.Intn(2000) + 50)
		cached := int64(rng.Intn(500))
		reasoning := int64(0)
		if rng.Intn(4) == 0 {
			reasoning = int64(rng.Intn(1500))
		}
		_, err := pool.Exec(ctx,
			`INSERT INTO usage_events (id, policy_id, occurred_at, input_tokens, output_tokens, cached_tokens, reasoning_tokens)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), policyID, occurred, input, output, cached, reasoning)
		if err != nil {
			log.Fatalf("seed event: %v", err)
		}
	}
	log.Printf("seeded %d events across %d days", *eventCount, *days)
}
