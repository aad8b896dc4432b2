package service

import (
	"outreach_backend/internal/leads/domain"
	"outreach_backend/internal/leads/transport"
)

func toLeadResponse(l domain.Lead) transport.LeadResponse {
	resp := transport.LeadResponse{
		ID:                   l.ID,
		Email:                l.Email,
		Name:                 l.Name,
		Source:               l.Source,
		Status:               string(l.Status),
		Phone:                l.Phone,
		CRMID:                l.CRMID,
		Company:              l.Metadata.Company,
		Interest:             l.Metadata.Interest,
		SequenceStage:        l.Metadata.SequenceStage,
		LastContactedAt:      l.Metadata.LastContactedAt,
		DraftCreatedForStage: l.Metadata.DraftCreatedForStage,
		HasReplied:           l.Metadata.HasReplied,
		MeetingBooked:        l.Metadata.MeetingBooked,
		DoNotContact:         l.Metadata.DoNotContact,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
	}
	if l.Metadata.Intent != nil {
		intent := toIntent(*l.Metadata.Intent)
		resp.Intent = &intent
	}
	return resp
}

func toIntent(i domain.Intent) transport.Intent {
	return transport.Intent{
		Score:           i.Score,
		Intent:          i.Intent,
		SuggestedAction: i.SuggestedAction,
		Reasoning:       i.Reasoning,
		AnalyzedAt:      i.AnalyzedAt,
	}
}
