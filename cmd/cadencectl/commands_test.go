package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"outreach_backend/internal/batches"
	"outreach_backend/internal/cadence"
	"outreach_backend/internal/cycle"
	"outreach_backend/internal/leads/domain"
	"outreach_backend/internal/leads/leadstest"
	"outreach_backend/internal/oracle"

	"golang.org/x/oauth2"
)

func TestFindLeadByIDOrEmail(t *testing.T) {
	store := leadstest.New()
	seeded := store.Seed(domain.Lead{Email: "ada@example.com"})[0]

	byID, err := findLead(context.Background(), store, seeded.ID.String())
	if err != nil || byID.Email != "ada@example.com" {
		t.Fatalf("by id: %+v, %v", byID, err)
	}
	byEmail, err := findLead(context.Background(), store, "  ADA@example.com ")
	if err != nil || byEmail.ID != seeded.ID {
		t.Fatalf("by email: %+v, %v", byEmail, err)
	}
	if _, err := findLead(context.Background(), store, "nobody@example.com"); err == nil || !strings.Contains(err.Error(), "no lead matches") {
		t.Fatalf("expected not-found message, got %v", err)
	}
}

func TestWriteCohorts(t *testing.T) {
	var buf bytes.Buffer
	writeCohorts(&buf, cadence.Cohorts{
		{Stage: 1, Interest: "AI Automation"}: {{Email: "a@example.com"}, {Email: "b@example.com"}},
	})
	out := buf.String()
	if !strings.Contains(out, "1_ai_automation") || !strings.Contains(out, "2") {
		t.Fatalf("unexpected cohort table:\n%s", out)
	}

	buf.Reset()
	writeCohorts(&buf, cadence.Cohorts{})
	if !strings.Contains(buf.String(), "no leads are due") {
		t.Fatalf("expected empty message, got %q", buf.String())
	}
}

func TestWriteDecision(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	var buf bytes.Buffer
	lead := domain.Lead{Email: "ada@example.com", Status: domain.StatusActive, Metadata: domain.Metadata{SequenceStage: 2}}
	writeDecision(&buf, lead, cadence.Decision{Reason: cadence.ReasonCooldown, ElapsedDays: 3, NextStage: 3})

	out := buf.String()
	for _, want := range []string{"ada@example.com", "Eligible: false", "Reason: cooldown", "Days since contact: 3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Next stage") {
		t.Fatalf("ineligible lead must not show a next stage")
	}
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	writeReport(&buf, cycle.Report{Steps: []cycle.StepResult{
		{Name: cycle.StepReplies, Error: "gmail quota"},
		{Name: cycle.StepPropose, Summary: map[string]int{"proposed": 2}},
	}})
	out := buf.String()
	if !strings.Contains(out, "error: gmail quota") || !strings.Contains(out, `{"proposed":2}`) {
		t.Fatalf("unexpected report:\n%s", out)
	}
}

func TestWriteProposals(t *testing.T) {
	var buf bytes.Buffer
	writeProposals(&buf, []batches.Proposal{{
		ID:        "2_general",
		Version:   3,
		Status:    batches.StatusPendingTemplate,
		LeadCount: 12,
		Content:   oracle.Bundle{Subject: "Quick follow-up"},
	}})
	out := buf.String()
	if !strings.Contains(out, "2_general") || !strings.Contains(out, "Quick follow-up") {
		t.Fatalf("unexpected proposal table:\n%s", out)
	}
}

func TestCancelActionIsValid(t *testing.T) {
	a := cancelAction("1_general", 4)
	if err := a.Validate(); err != nil {
		t.Fatalf("cancel action must validate: %v", err)
	}
	if a.Kind != batches.ActionCancel || a.Version != 4 {
		t.Fatalf("unexpected action %+v", a)
	}
}

func TestRootRegistersCommands(t *testing.T) {
	want := map[string]bool{"cycle": false, "classify": false, "reset": false, "draft": false, "batches": false, "auth": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("command %q not registered", name)
		}
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestAuthorizeExchangesCallbackCode(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "abc" {
			http.Error(w, "bad code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","refresh_token":"ref-1","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	cfg := &oauth2.Config{
		ClientID:    "client",
		RedirectURL: "http://" + freeAddr(t) + callbackPath,
		Endpoint:    oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: tokenSrv.URL},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := authorize(ctx, cfg, func(authURL string) {
		u, err := url.Parse(authURL)
		if err != nil {
			return
		}
		state := u.Query().Get("state")
		go func() {
			resp, err := http.Get(cfg.RedirectURL + "?code=abc&state=" + url.QueryEscape(state))
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
	})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if token.AccessToken != "tok-1" || token.RefreshToken != "ref-1" {
		t.Fatalf("unexpected token %+v", token)
	}
}

func TestAuthorizeRejectsStateMismatch(t *testing.T) {
	cfg := &oauth2.Config{
		ClientID:    "client",
		RedirectURL: "http://" + freeAddr(t) + callbackPath,
		Endpoint:    oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: "http://127.0.0.1:1/token"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := authorize(ctx, cfg, func(string) {
		go func() {
			resp, err := http.Get(cfg.RedirectURL + "?code=abc&state=forged")
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
	})
	if err == nil || !strings.Contains(err.Error(), "state mismatch") {
		t.Fatalf("expected state mismatch, got %v", err)
	}
}
