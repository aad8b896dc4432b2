package oracle

import (
	"fmt"
	"strings"

	"outreach_backend/internal/leads/domain"
)

const bundleComponents = `Components needed:
1. subject: A catchy, short subject line (under 6 words).
2. personalized_hook: %s
3. value_proposition: %s
4. cta_text: A soft call to action (e.g., "Worth a quick chat?").

Return JSON only with the keys subject, personalized_hook, value_proposition, cta_text.`

func genericPrompt(company, info string, stage int, interest, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a sales expert representing '%s'.\n\n", company)
	fmt.Fprintf(&b, "Here is information about OUR company and services:\n%s\n\n", info)
	fmt.Fprintf(&b, "Generate a GENERIC email template for Stage %d of our outreach sequence.\n", stage)
	fmt.Fprintf(&b, "Target Audience Interest: %s\n", interest)
	if feedback != "" {
		fmt.Fprintf(&b, "\nIMPORTANT: The user provided specific feedback to refine this template: '%s'. Please incorporate this feedback.\n", feedback)
	}
	b.WriteString("\nThis template will be sent to multiple leads, so use placeholders like {{name}} and {{company}} where appropriate.\n")
	fmt.Fprintf(&b, "Focus the value proposition specifically on %s.\n\n", interest)
	fmt.Fprintf(&b, bundleComponents,
		`A generic but engaging opening line (e.g., "I was checking out {{company}} and...").`,
		fmt.Sprintf("A strong pitch about how WE help companies like theirs with %s.", interest))
	return b.String()
}

func personalizedPrompt(company, info string, lead domain.Lead, stage int) string {
	leadCompany := lead.Metadata.Company
	if leadCompany == "" {
		leadCompany = "their company"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are a sales expert representing '%s'.\n\n", company)
	fmt.Fprintf(&b, "Here is information about OUR company and services:\n%s\n\n", info)
	b.WriteString("Generate 4 components for a cold email to this lead.\n\n")
	fmt.Fprintf(&b, "Lead Name: %s\nCompany: %s\nSource: %s\nStage: %d\n\n", lead.Name, leadCompany, lead.Source, stage)
	fmt.Fprintf(&b, bundleComponents,
		"A 1-sentence opening that connects to them personally or their company.",
		fmt.Sprintf("A 1-2 sentence pitch about how WE (%s) help companies like theirs, based on the company info provided above.", company))
	return b.String()
}

func replyPrompt(text string) string {
	return fmt.Sprintf(`Analyze the following email content from a lead and determine their status.

Email Content: %q

Possible Statuses:
- "Replied" (General reply)
- "Interested" (Positive reply)
- "Not Interested" (Negative reply)
- "Meeting Booked" (If they confirm a time)
- "Out of Office" (Automatic absence notice)
- "Unsubscribe" (They ask to stop receiving email)
- "Wrong Person" (They are not the right contact)
- "No Change" (If the content is irrelevant or just an auto-reply)

Return ONLY the status string.`, text)
}

func sentPrompt(text string) string {
	return fmt.Sprintf(`Analyze the following email that WAS SENT TO a lead. Determine what stage of outreach this represents.

Email Content: %q

Possible Statuses:
- "New" (If it looks like a first touch/intro)
- "Attempted to Contact" (If it's a follow-up)
- "Connected" (If we are replying to them)

Return ONLY the status string.`, text)
}

func intentPrompt(lead domain.Lead) string {
	message := lead.Message
	if message == "" {
		message = "No message"
	}
	return fmt.Sprintf(`Analyze the following lead and provide a JSON response with:
1. "score": A score from 0-100 indicating lead quality.
2. "intent": A short description of their intent (e.g., "Ready to buy", "Just browsing").
3. "suggested_action": One of ["sequence_start", "manual_review", "disqualify"].
4. "reasoning": Brief explanation.

Lead Data:
Name: %s
Source: %s
Message: %s`, lead.Name, lead.Source, message)
}
