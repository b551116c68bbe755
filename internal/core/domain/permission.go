package domain

import "strings"

// Permission is a platform-neutral set of permission flags. Adapters translate platform bits into it.
type Permission uint64

const (
	PermAdministrator Permission = 1 << iota
	PermManageGuild
	PermManageChannels
	PermManageMessages
	PermManageRoles
	PermKickMembers
	PermBanMembers
	PermModerateMembers
	PermMentionEveryone
	PermPinMessages
	PermInviteMembers
)

var permissionNames = []struct {
	p    Permission
	name string
}{
	{PermAdministrator, "Administrator"},
	{PermManageGuild, "Manage Server"},
	{PermManageChannels, "Manage Channels"},
	{PermManageMessages, "Manage Messages"},
	{PermManageRoles, "Manage Roles"},
	{PermKickMembers, "Kick Members"},
	{PermBanMembers, "Ban Members"},
	{PermModerateMembers, "Moderate Members"},
	{PermMentionEveryone, "Mention Everyone"},
	{PermPinMessages, "Pin Messages"},
	{PermInviteMembers, "Invite Members"},
}

// PermAll is granted to chat owners and administrators.
const PermAll Permission = PermAdministrator | PermManageGuild | PermManageChannels | PermManageMessages |
	PermManageRoles | PermKickMembers | PermBanMembers | PermModerateMembers | PermMentionEveryone |
	PermPinMessages | PermInviteMembers

// Has reports whether p is a superset of required.
func (p Permission) Has(required Permission) bool {
	return p&required == required
}

func (p Permission) String() string {
	if p == 0 {
		return "none"
	}

	var names []string
	for _, n := range permissionNames {
		if p&n.p != 0 {
			names = append(names, n.name)
		}
	}

	return strings.Join(names, ", ")
}
