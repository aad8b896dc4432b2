// Package crmtest provides an in-memory crm.Client for tests.
package crmtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"outreach_backend/internal/crm"
)

// Update is one recorded property write.
type Update struct {
	ContactID string
	Name      string
	Value     string
}

// Client keeps contacts in memory and records writes.
type Client struct {
	mu       sync.Mutex
	seq      int
	contacts map[string]crm.Contact
	Updates  []Update
	Notes    map[string][]string

	// ListErr makes ListContacts fail.
	ListErr error
	// UpdateErr makes UpdateProperty fail.
	UpdateErr error
	// UpsertErr makes UpsertContact fail.
	UpsertErr error
}

var _ crm.Client = (*Client)(nil)

func New(contacts ...crm.Contact) *Client {
	c := &Client{contacts: make(map[string]crm.Contact), Notes: make(map[string][]string)}
	for _, ct := range contacts {
		c.Add(ct)
	}
	return c
}

// Add stores ct, assigning an id when empty, and returns the id.
func (c *Client) Add(ct crm.Contact) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ct.ID == "" {
		c.seq++
		ct.ID = fmt.Sprintf("c-%d", c.seq)
	}
	ct.Email = strings.ToLower(ct.Email)
	c.contacts[ct.ID] = ct
	return ct.ID
}

// Remove deletes a contact by email.
func (c *Client) Remove(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ct := range c.contacts {
		if ct.Email == strings.ToLower(email) {
			delete(c.contacts, id)
		}
	}
}

// Status returns the last hs_lead_status written for contactID.
func (c *Client) Status(contactID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := ""
	for _, u := range c.Updates {
		if u.ContactID == contactID && u.Name == crm.PropertyLeadStatus {
			status = u.Value
		}
	}
	return status
}

func (c *Client) UpsertContact(_ context.Context, fields crm.ContactFields) (string, error) {
	if c.UpsertErr != nil {
		return "", c.UpsertErr
	}
	c.mu.Lock()
	for id, ct := range c.contacts {
		if ct.Email == strings.ToLower(fields.Email) {
			c.mu.Unlock()
			return id, crm.ErrDuplicate
		}
	}
	c.mu.Unlock()
	first, last := crm.SplitName(fields.Name)
	return c.Add(crm.Contact{Email: fields.Email, FirstName: first, LastName: last, Company: fields.Company, Interest: fields.Interest}), nil
}

func (c *Client) UpdateProperty(_ context.Context, contactID, name, value string) error {
	if c.UpdateErr != nil {
		return c.UpdateErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Updates = append(c.Updates, Update{ContactID: contactID, Name: name, Value: value})
	return nil
}

func (c *Client) ListContacts(context.Context, int) ([]crm.Contact, error) {
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]crm.Contact, 0, len(c.contacts))
	for _, ct := range c.contacts {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (c *Client) FindByEmail(_ context.Context, email string) (crm.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ct := range c.contacts {
		if ct.Email == strings.ToLower(email) {
			return ct, nil
		}
	}
	return crm.Contact{}, crm.ErrNotFound
}

func (c *Client) LogNote(_ context.Context, contactID, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notes[contactID] = append(c.Notes[contactID], body)
	return nil
}
