package app

import (
	"testing"

	"github.com/google/uuid"

	"github.com/rizzosai/affiliate-service/internal/domain"
)

func TestDecideRecipient(t *testing.T) {
	referrer := &domain.User{ID: uuid.New(), Username: "alice"}
	owner := &domain.User{ID: uuid.New(), Username: "rizzosai"}

	tests := []struct {
		name           string
		priorReferrals int
		siteOwner      *domain.User
		wantRecipient  *domain.User
		wantPassedUp   bool
	}{
		{"first referral goes to referrer", 0, owner, referrer, false},
		{"second referral passes up to owner", 1, owner, owner, true},
		{"third referral goes to referrer", 2, owner, referrer, false},
		{"tenth referral goes to referrer", 9, owner, referrer, false},
		{"second referral without owner falls back", 1, nil, referrer, false},
		{"owner referring does not pass up to self", 1, referrer, referrer, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipient, passedUp := DecideRecipient(referrer, tt.priorReferrals, tt.siteOwner)
			if recipient.ID != tt.wantRecipient.ID {
				t.Fatalf("recipient = %s, want %s", recipient.Username, tt.wantRecipient.Username)
			}
			if passedUp != tt.wantPassedUp {
				t.Fatalf("passedUp = %v, want %v", passedUp, tt.wantPassedUp)
			}
		})
	}
}

func TestBuildReferralDecision(t *testing.T) {
	referrer := &domain.User{ID: uuid.New(), Username: "alice"}
	owner := &domain.User{ID: uuid.New(), Username: "rizzosai"}

	t.Run("pass-up fills recipient and flips the flag", func(t *testing.T) {
		d := buildReferralDecision(referrer, 1, owner, 2000)
		if !d.PassedUp {
			t.Fatal("expected pass-up on the second referral")
		}
		if d.PassUpRecipientID == nil || *d.PassUpRecipientID != owner.ID {
			t.Fatalf("pass-up recipient = %v, want %s", d.PassUpRecipientID, owner.ID)
		}
		if !d.MarkPassUpUsed {
			t.Fatal("expected MarkPassUpUsed on the pass-up")
		}
		if d.ReferralOrder != 2 {
			t.Fatalf("referral order = %d, want 2", d.ReferralOrder)
		}
		if d.ReferrerID != referrer.ID {
			t.Fatal("edge must keep the original referrer")
		}
	})

	t.Run("direct referral leaves pass-up fields empty", func(t *testing.T) {
		d := buildReferralDecision(referrer, 2, owner, 2000)
		if d.PassedUp || d.PassUpRecipientID != nil || d.MarkPassUpUsed {
			t.Fatalf("unexpected pass-up state on referral #%d: %+v", d.ReferralOrder, d)
		}
		if d.CommissionCents != 2000 {
			t.Fatalf("commission = %d, want 2000", d.CommissionCents)
		}
	})
}
