package biz

import (
	"strings"

	"github.com/kart-io/persona-assistant/pkg/errors"
)

// Role 提问者声明的身份。
type Role string

const (
	RoleHiringManagerNonTechnical Role = "hiring-manager-nontechnical"
	RoleHiringManagerTechnical    Role = "hiring-manager-technical"
	RoleDeveloper                 Role = "developer"
	RoleTechnicalManager          Role = "technical-manager"
	RoleJustLooking               Role = "just-looking-around"
	RoleConfession                Role = "confession"
)

// TagPersonal 标记非职业相关的个人内容。
const TagPersonal = "personal"

type roleProfile struct {
	displayName  string
	excludeTags  []string
	codeEnriched bool
	instructions string
}

// roles 中的顺序即 Roles() 的返回顺序。
var roles = []Role{
	RoleHiringManagerNonTechnical,
	RoleHiringManagerTechnical,
	RoleDeveloper,
	RoleTechnicalManager,
	RoleJustLooking,
	RoleConfession,
}

var profiles = map[Role]roleProfile{
	RoleHiringManagerNonTechnical: {
		displayName: "Hiring Manager (nontechnical)",
		excludeTags: []string{TagPersonal},
		instructions: "The reader is a non-technical hiring manager. Lead with business impact and outcomes, " +
			"avoid jargon, and keep the answer under 150 words.",
	},
	RoleHiringManagerTechnical: {
		displayName: "Hiring Manager (technical)",
		excludeTags: []string{TagPersonal},
		instructions: "The reader is a technical hiring manager. Cover the technologies used, the scale involved " +
			"and the decisions made. Keep it concise and factual.",
	},
	RoleDeveloper: {
		displayName:  "Software Developer",
		excludeTags:  []string{TagPersonal},
		codeEnriched: true,
		instructions: "The reader is a software developer. Be specific about implementation details and " +
			"reference the cited code locations in file:start-end form when they are provided.",
	},
	RoleTechnicalManager: {
		displayName:  "Technical Manager",
		excludeTags:  []string{TagPersonal},
		codeEnriched: true,
		instructions: "The reader is a technical manager. Balance architecture and trade-offs with delivery " +
			"and team impact. Mention cited code locations only when they support a point.",
	},
	RoleJustLooking: {
		displayName:  "Just looking around",
		instructions: "The reader is casually browsing. Keep the tone friendly and light, and the answer short.",
	},
	RoleConfession: {
		displayName: "Confession",
	},
}

// Roles 返回所有已知角色。
func Roles() []Role {
	return append([]Role(nil), roles...)
}

func normalizeRole(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("(", "", ")", "", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), "-")
}

// ParseRole 解析角色标识或显示名称（不区分大小写）。
func ParseRole(s string) (Role, error) {
	key := normalizeRole(s)
	for _, r := range roles {
		if key == string(r) || key == normalizeRole(profiles[r].displayName) {
			return r, nil
		}
	}
	return "", errors.ErrInvalidRole.WithMessagef("unknown role %q", s)
}

// String 返回角色标识。
func (r Role) String() string { return string(r) }

// DisplayName 返回角色显示名称。
func (r Role) DisplayName() string { return profiles[r].displayName }

// CodeEnriched 技术类问题是否附加代码符号。
func (r Role) CodeEnriched() bool { return profiles[r].codeEnriched }

// ExcludeTags 返回检索前需要排除的内容标签。
func (r Role) ExcludeTags() []string { return profiles[r].excludeTags }

func (r Role) instructions() string { return profiles[r].instructions }

// validRolesText 列出所有可用角色，用于错误提示。
func validRolesText() string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
