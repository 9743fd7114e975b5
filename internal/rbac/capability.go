package rbac

// Capability is an atomic action the caller may perform.
type Capability string

const (
	CapPOView     Capability = "po.view"
	CapPOEdit     Capability = "po.edit"
	CapPOApprove  Capability = "po.approve"
	CapPODispatch Capability = "po.dispatch"
	CapGRNPost    Capability = "grn.post"
	CapAdmin      Capability = "admin"
)

// roleGrants maps gateway-resolved role names to capability sets. Evaluation
// is a pure function of the claims; nothing is looked up at runtime.
var roleGrants = map[string][]Capability{
	"admin":       {CapAdmin, CapPOView, CapPOEdit, CapPOApprove, CapPODispatch, CapGRNPost},
	"procurement": {CapPOView, CapPOEdit, CapPODispatch},
	"approver":    {CapPOView, CapPOApprove},
	"warehouse":   {CapPOView, CapGRNPost},
	"finance":     {CapPOView},
}

// CapabilitiesFor derives the capability set for the given role claims.
func CapabilitiesFor(roles []string) map[Capability]bool {
	caps := make(map[Capability]bool)
	for _, role := range roles {
		for _, c := range roleGrants[role] {
			caps[c] = true
		}
	}
	return caps
}
