package rbac

// Roles a wallet can have towards one campaign.
const (
	RoleOwner  = "owner"
	RoleFunder = "funder"
)

const (
	PermFund         = "fund"
	PermRefund       = "refund"
	PermWithdraw     = "withdraw"
	PermClose        = "close"
	PermEditCampaign = "edit_campaign"
)

// RolePermissions defines what each role can do. State rules (open, softcap
// reached, balance left) are checked by the caller.
var RolePermissions = map[string][]string{
	RoleOwner: {
		PermWithdraw, PermClose, PermEditCampaign,
		// Owner CANNOT: PermFund, PermRefund
	},
	RoleFunder: {
		PermFund, PermRefund,
	},
}

// RoleFor is the role of a connected wallet towards a campaign.
func RoleFor(isOwner bool) string {
	if isOwner {
		return RoleOwner
	}
	return RoleFunder
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}
