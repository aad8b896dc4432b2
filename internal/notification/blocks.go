package notification

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"outreach_backend/internal/batches"
)

// Interaction identifiers shared with the action endpoint.
const (
	ActionApproveTemplate    = "approve_template"
	ActionRegenerateTemplate = "regenerate_template"
	ActionRefineTemplate     = "refine_template"
	ActionConfirmBlast       = "confirm_blast"
	ActionCancelBlast        = "cancel_blast"

	RefineCallbackID   = "refine_submit"
	FeedbackBlockID    = "feedback_block"
	FeedbackActionID   = "feedback_input"
	proposalBlockStem  = "proposal_v"
	sampleBlockStem    = "sample_v"
	defaultSenderName  = "The Team"
	previewPlaceholder = "{name}"
)

// Message is a Slack message payload.
type Message struct {
	Text            string  `json:"text"`
	Blocks          []Block `json:"blocks,omitempty"`
	ReplaceOriginal bool    `json:"replace_original,omitempty"`
	ResponseType    string  `json:"response_type,omitempty"`
}

// Block is the subset of Block Kit layout blocks used here.
type Block struct {
	Type     string      `json:"type"`
	BlockID  string      `json:"block_id,omitempty"`
	Text     *TextObject `json:"text,omitempty"`
	Elements []Element   `json:"elements,omitempty"`
	Label    *TextObject `json:"label,omitempty"`
	Element  *Element    `json:"element,omitempty"`
}

type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Element is a button or an input element.
type Element struct {
	Type        string      `json:"type"`
	ActionID    string      `json:"action_id,omitempty"`
	Text        *TextObject `json:"text,omitempty"`
	Value       string      `json:"value,omitempty"`
	Style       string      `json:"style,omitempty"`
	Multiline   bool        `json:"multiline,omitempty"`
	Placeholder *TextObject `json:"placeholder,omitempty"`
}

// View is a modal definition for views.open.
type View struct {
	Type            string      `json:"type"`
	CallbackID      string      `json:"callback_id"`
	PrivateMetadata string      `json:"private_metadata,omitempty"`
	Title           *TextObject `json:"title"`
	Submit          *TextObject `json:"submit,omitempty"`
	Close           *TextObject `json:"close,omitempty"`
	Blocks          []Block     `json:"blocks"`
}

// RefineMetadata travels through the modal so the submission knows what it refines.
type RefineMetadata struct {
	BatchID     string `json:"batch_id"`
	Version     int64  `json:"version"`
	ResponseURL string `json:"response_url"`
}

func mrkdwn(text string) *TextObject    { return &TextObject{Type: "mrkdwn", Text: text} }
func plainText(text string) *TextObject { return &TextObject{Type: "plain_text", Text: text} }

func section(text string) Block {
	return Block{Type: "section", Text: mrkdwn(text)}
}

func button(actionID, label, value, style string) Element {
	return Element{Type: "button", ActionID: actionID, Text: plainText(label), Value: value, Style: style}
}

// ProposalReview is the template review message with approve, regenerate
// and refine buttons. Placeholders stay visible so the operator reviews the
// generic template.
func ProposalReview(p batches.Proposal, sender string) Message {
	if strings.TrimSpace(sender) == "" {
		sender = defaultSenderName
	}
	header := fmt.Sprintf("*:mega: Batch Proposal for Stage %d (%s)* (%d leads)\nReview the generic template below:",
		p.Stage, p.Interest, p.LeadCount)
	preview := fmt.Sprintf("*Subject:* %s\n\nHi %s,\n\n%s\n\n%s\n\n%s\n\n*Best,*\n*%s*",
		p.Content.Subject, previewPlaceholder, p.Content.PersonalizedHook,
		p.Content.ValueProposition, p.Content.CTAText, sender)

	blocks := []Block{section(header), {Type: "divider"}, section(preview)}
	if p.Feedback != "" {
		blocks = append(blocks, section("_Refined with feedback:_ "+p.Feedback))
	}
	blocks = append(blocks, Block{
		Type:    "actions",
		BlockID: proposalBlockStem + strconv.FormatInt(p.Version, 10),
		Elements: []Element{
			button(ActionApproveTemplate, "Approve Template", p.ID, "primary"),
			button(ActionRegenerateTemplate, "Regenerate", p.ID, ""),
			button(ActionRefineTemplate, "Refine (Feedback)", p.ID, ""),
		},
	})
	return Message{Text: fmt.Sprintf("Batch proposal %s", p.ID), Blocks: blocks}
}

// SampleReview replaces the proposal once the review draft exists.
func SampleReview(p batches.Proposal) Message {
	text := fmt.Sprintf("*:white_check_mark: Sample draft created for %s*\nA draft to %s is waiting in the outbox. Confirm to send to all %d leads.",
		p.ID, p.SampleRecipient, p.LeadCount)
	return Message{
		Text:            "Sample draft created for " + p.ID,
		ReplaceOriginal: true,
		Blocks: []Block{
			section(text),
			{
				Type:    "actions",
				BlockID: sampleBlockStem + strconv.FormatInt(p.Version, 10),
				Elements: []Element{
					button(ActionConfirmBlast, "Confirm & Send", p.ID, "primary"),
					button(ActionCancelBlast, "Cancel", p.ID, "danger"),
				},
			},
		},
	}
}

// BlastSummary reports a finished blast.
func BlastSummary(result batches.BlastResult) Message {
	text := fmt.Sprintf(":rocket: Batch %s sent to %d leads", result.BatchID, result.Sent)
	if result.Failed > 0 {
		text += fmt.Sprintf(" (%d failed)", result.Failed)
	}
	return Message{Text: text, ReplaceOriginal: true, Blocks: []Block{section(text)}}
}

// RefineModal asks the operator for feedback on one proposal version.
func RefineModal(meta RefineMetadata) View {
	raw, _ := json.Marshal(meta)
	return View{
		Type:            "modal",
		CallbackID:      RefineCallbackID,
		PrivateMetadata: string(raw),
		Title:           plainText("Refine Template"),
		Submit:          plainText("Regenerate"),
		Close:           plainText("Cancel"),
		Blocks: []Block{{
			Type:    "input",
			BlockID: FeedbackBlockID,
			Label:   plainText("What should change?"),
			Element: &Element{
				Type:        "plain_text_input",
				ActionID:    FeedbackActionID,
				Multiline:   true,
				Placeholder: plainText("e.g. shorter, mention our pricing page"),
			},
		}},
	}
}

// ParseVersion extracts the proposal version from an actions block id.
// Unversioned ids yield 0, which addresses the live proposal.
func ParseVersion(blockID string) int64 {
	for _, stem := range []string{proposalBlockStem, sampleBlockStem} {
		if rest, ok := strings.CutPrefix(blockID, stem); ok {
			v, err := strconv.ParseInt(rest, 10, 64)
			if err == nil && v > 0 {
				return v
			}
		}
	}
	return 0
}
