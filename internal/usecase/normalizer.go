package usecase

import (
	"strings"

	"vip-billing/internal/domain/model"
)

// vocabularies maps each provider's native status strings (lower-cased) to the
// canonical tri-state. Missing entries fall through to pending.
var vocabularies = map[model.Provider]map[string]model.CanonicalStatus{
	model.ProviderQrpay: {
		"paid":      model.CanonicalPaid,
		"completed": model.CanonicalPaid,
		"approved":  model.CanonicalPaid,
		"failed":    model.CanonicalFailed,
		"expired":   model.CanonicalFailed,
	},
	model.ProviderCashin: {
		"completo": model.CanonicalPaid,
		"falha":    model.CanonicalFailed,
		"expirado": model.CanonicalFailed,
	},
	model.ProviderNoop: {
		"paid":   model.CanonicalPaid,
		"failed": model.CanonicalFailed,
	},
}

// Normalize translates a provider-native status into a canonical one.
// known is false when the vocabulary did not recognize the value.
func Normalize(provider model.Provider, native string) (status model.CanonicalStatus, known bool) {
	vocab, ok := vocabularies[provider]
	if !ok {
		return model.CanonicalPending, false
	}
	key := strings.ToLower(strings.TrimSpace(native))
	if s, ok := vocab[key]; ok {
		return s, true
	}
	// Values that merely mean "not yet" are recognized but still pending.
	switch key {
	case "pending", "pendente", "waiting", "created", "active", "aguardando":
		return model.CanonicalPending, true
	}
	return model.CanonicalPending, false
}
