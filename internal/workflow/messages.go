package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alnah/go-scribe/internal/billing"
	"github.com/alnah/go-scribe/internal/format"
	"github.com/alnah/go-scribe/internal/lang"
	"github.com/alnah/go-scribe/internal/media"
)

func chargedMessage(run *Run) string {
	o := run.Billing
	length := format.Seconds(run.Duration)
	if run.DurationEstimated {
		length += " (estimated)"
	}
	return fmt.Sprintf("Charged %s for %s of audio (%s). Balance: %s.",
		format.Credits(o.AmountCharged), length, o.ModelTier, format.Credits(o.BalanceAfter))
}

// finalMessage tells the user how the run ended. cause may be nil when a
// resumed run only had cleanup left.
func finalMessage(run *Run, cause error) string {
	if !run.Failed() {
		r := run.Result
		return fmt.Sprintf("Transcript ready: %d characters, %d segments, language %s.",
			len(r.Text), len(r.Segments), lang.DisplayName(r.Language))
	}

	var msg string
	var funds *billing.InsufficientFundsError
	switch {
	case errors.As(cause, &funds):
		msg = fmt.Sprintf("Not enough credits: %s required, %s available.",
			format.Credits(funds.Required), format.Credits(funds.Available))
	case run.FailureReason == ReasonInsufficientFunds:
		msg = "Not enough credits for this file."
	case run.FailureReason == ReasonCancelled:
		msg = "Transcription cancelled."
	case run.FailureReason == ReasonUnsupportedFormat:
		msg = "Unsupported file format. Supported: " + strings.Join(media.SupportedFormats(), ", ") + "."
	case run.FailureReason == ReasonFileTooLarge:
		msg = "File too large."
	case run.FailureReason == ReasonMediaNotFound:
		msg = "File not found."
	case run.FailureReason == ReasonInvalidRequest:
		msg = "Invalid request: " + run.Error
	default:
		msg = "Transcription failed, please try again later."
	}
	if run.Refunded && run.Billing != nil {
		msg += fmt.Sprintf(" %s refunded.", format.Credits(run.Billing.AmountCharged))
	}
	return msg
}
