package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"reflect"
	"sort"
	"time"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	"github.com/noah-isme/wfh-scheduler/internal/repository"
	"github.com/noah-isme/wfh-scheduler/pkg/backend"
	"github.com/noah-isme/wfh-scheduler/pkg/config"
	"github.com/noah-isme/wfh-scheduler/pkg/database"
)

// reader is the read-only slice of the collaborator surface both adapters serve.
type reader interface {
	FetchScheduleSummary(ctx context.Context, staffID int, start, end models.Date) ([]models.ScheduleDay, error)
	FetchPendingRequests(ctx context.Context, managerID int) ([]models.PendingRequest, error)
	FetchStaffProfile(ctx context.Context, staffID int) (*models.StaffProfile, error)
	FetchStaffRequests(ctx context.Context, staffID int) ([]models.RequestRecord, error)
	FetchTeamScheduleSummary(ctx context.Context, managerID int, start, end models.Date) ([]models.TeamDay, error)
}

type comparison struct {
	Name             string
	Critical         bool
	Match            bool
	Error            error
	DurationHTTP     time.Duration
	DurationPostgres time.Duration
}

type check struct {
	name     string
	critical bool
	run      func(ctx context.Context, r reader) (interface{}, error)
}

func main() {
	var (
		staffID   int
		managerID int
		startRaw  string
		endRaw    string
		timeout   time.Duration
	)

	flag.IntVar(&staffID, "staff", 0, "staff id whose schedule and profile are compared")
	flag.IntVar(&managerID, "manager", 0, "manager id whose pending queue is compared")
	flag.StringVar(&startRaw, "start", "", "first day of the schedule range (YYYY-MM-DD)")
	flag.StringVar(&endRaw, "end", "", "last day of the schedule range (YYYY-MM-DD)")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "per-call timeout")
	flag.Parse()

	if staffID <= 0 {
		log.Fatal("-staff is required")
	}
	start, err := models.ParseDate(startRaw)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}
	end, err := models.ParseDate(endRaw)
	if err != nil {
		log.Fatalf("invalid -end: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer db.Close()

	httpSide := backend.NewClient(cfg.Backend.BaseURL, timeout)
	pgSide := repository.NewPostgresBackend(db)

	checks := []check{
		{name: fmt.Sprintf("schedule staff=%d %s..%s", staffID, start, end), critical: true, run: func(ctx context.Context, r reader) (interface{}, error) {
			return r.FetchScheduleSummary(ctx, staffID, start, end)
		}},
		{name: fmt.Sprintf("profile staff=%d", staffID), run: func(ctx context.Context, r reader) (interface{}, error) {
			return r.FetchStaffProfile(ctx, staffID)
		}},
		{name: fmt.Sprintf("history staff=%d", staffID), run: func(ctx context.Context, r reader) (interface{}, error) {
			items, err := r.FetchStaffRequests(ctx, staffID)
			sort.Slice(items, func(i, j int) bool { return items[i].RequestID < items[j].RequestID })
			return items, err
		}},
	}
	if managerID > 0 {
		checks = append(checks, check{name: fmt.Sprintf("pending manager=%d", managerID), critical: true, run: func(ctx context.Context, r reader) (interface{}, error) {
			items, err := r.FetchPendingRequests(ctx, managerID)
			sort.Slice(items, func(i, j int) bool { return items[i].RequestID < items[j].RequestID })
			return items, err
		}})
		checks = append(checks, check{name: fmt.Sprintf("team manager=%d %s..%s", managerID, start, end), run: func(ctx context.Context, r reader) (interface{}, error) {
			return r.FetchTeamScheduleSummary(ctx, managerID, start, end)
		}})
	}

	var (
		results      []comparison
		breaking     int
		optionalDiff int
	)
	for _, p := range checks {
		res := compare(p, httpSide, pgSide, timeout)
		if res.Error != nil || !res.Match {
			if p.critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func compare(p check, httpSide, pgSide reader, timeout time.Duration) comparison {
	res := comparison{Name: p.name, Critical: p.critical}

	httpOut, httpDur, err := timed(p, httpSide, timeout)
	res.DurationHTTP = httpDur
	if err != nil {
		res.Error = fmt.Errorf("http adapter: %w", err)
		return res
	}
	pgOut, pgDur, err := timed(p, pgSide, timeout)
	res.DurationPostgres = pgDur
	if err != nil {
		res.Error = fmt.Errorf("postgres adapter: %w", err)
		return res
	}

	res.Match, res.Error = sameJSON(httpOut, pgOut)
	return res
}

func timed(p check, r reader, timeout time.Duration) (interface{}, time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	start := time.Now()
	out, err := p.run(ctx, r)
	return out, time.Since(start), err
}

// sameJSON compares two values by their wire form.
func sameJSON(a, b interface{}) (bool, error) {
	aj, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	if bytes.Equal(aj, bj) {
		return true, nil
	}

	var av, bv interface{}
	if err := json.Unmarshal(aj, &av); err != nil {
		return false, err
	}
	if err := json.Unmarshal(bj, &bv); err != nil {
		return false, err
	}
	return reflect.DeepEqual(av, bv), nil
}

func printReport(results []comparison) {
	fmt.Println("Backend Parity Report")
	fmt.Println("=====================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.Match {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s\n", status, res.Name)
		fmt.Printf("  http: %s | postgres: %s\n", res.DurationHTTP, res.DurationPostgres)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		} else {
			fmt.Printf("  Match: %t | Critical: %t\n", res.Match, res.Critical)
		}
	}
}
