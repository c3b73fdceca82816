package models

import "testing"

func TestMovementTypeDirections(t *testing.T) {
	tests := []struct {
		movement MovementType
		inbound  bool
		outbound bool
	}{
		{MovementPurchase, true, false},
		{MovementSale, false, true},
		{MovementTransferIn, true, false},
		{MovementTransferOut, false, true},
		{MovementAdjustment, false, false},
		{MovementDamage, false, true},
		{MovementReturn, true, false},
		{MovementExpired, false, true},
	}

	for _, tt := range tests {
		if !tt.movement.Valid() {
			t.Errorf("%s must be valid", tt.movement)
		}
		if tt.movement.Inbound() != tt.inbound {
			t.Errorf("%s Inbound() = %v, want %v", tt.movement, tt.movement.Inbound(), tt.inbound)
		}
		if tt.movement.Outbound() != tt.outbound {
			t.Errorf("%s Outbound() = %v, want %v", tt.movement, tt.movement.Outbound(), tt.outbound)
		}
	}

	if MovementType("RESTOCK").Valid() {
		t.Errorf("unknown movement type must not be valid")
	}
}

func TestPaymentMethodValid(t *testing.T) {
	for _, m := range []PaymentMethod{PaymentCash, PaymentDebit, PaymentCredit, PaymentGiftCard, PaymentOther} {
		if !m.Valid() {
			t.Errorf("%s must be valid", m)
		}
	}
	if PaymentMethod("BITCOIN").Valid() {
		t.Errorf("unknown payment method must not be valid")
	}
	if PaymentMethod("cash").Valid() {
		t.Errorf("payment methods are case sensitive")
	}
}

func TestProductCategoryValid(t *testing.T) {
	if !CategoryPreRolls.Valid() {
		t.Errorf("PRE_ROLLS must be valid")
	}
	if ProductCategory("").Valid() {
		t.Errorf("empty category must not be valid")
	}
}
