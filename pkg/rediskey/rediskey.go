package rediskey

import "fmt"

// Key prefixes shared across the service (global convention).
const (
	ActorRatePrefix       = "actor:rate"
	CashierSuspectsPrefix = "cashier:suspects"
	SequencePrefix        = "seq"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildActorRateKey returns "actor:rate:{actorID}:{window}"
func BuildActorRateKey(actorID string, window int64) string {
	return NamespaceKey(ActorRatePrefix, fmt.Sprintf("%s:%d", actorID, window))
}

// BuildCashierSuspectsKey returns "cashier:suspects:{cashierID}"
func BuildCashierSuspectsKey(cashierID string) string {
	return NamespaceKey(CashierSuspectsPrefix, cashierID)
}

// BuildSequenceKey returns "seq:{prefix}:{day}"
func BuildSequenceKey(prefix, day string) string {
	return NamespaceKey(SequencePrefix, fmt.Sprintf("%s:%s", prefix, day))
}
