package services

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/peerhub/peerhub/internal/config"
	"github.com/peerhub/peerhub/pkg/logger"
)

// LDAPUser is the directory record the auth service mirrors into a local
// account.
type LDAPUser struct {
	Username    string
	Email       string
	DisplayName string
	IsAdmin     bool
}

// LDAPService authenticates users against the configured directory.
// Membership in the configured admin group grants the platform admin role.
type LDAPService struct {
	cfg *config.LDAPConfig
}

func NewLDAPService(cfg *config.LDAPConfig) *LDAPService {
	return &LDAPService{cfg: cfg}
}

// Enabled reports whether directory login is configured.
func (s *LDAPService) Enabled() bool {
	return s.cfg != nil && s.cfg.Enabled
}

func (s *LDAPService) connect() (*ldap.Conn, error) {
	address := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if s.cfg.UseSSL {
		return ldap.DialTLS("tcp", address, &tls.Config{ServerName: s.cfg.Host})
	}
	return ldap.Dial("tcp", address)
}

// Authenticate verifies the user's directory credentials and returns their
// mirrored attributes.
func (s *LDAPService) Authenticate(username, password string) (*LDAPUser, error) {
	if !s.Enabled() {
		return nil, errors.New("ldap is not enabled")
	}

	conn, err := s.connect()
	if err != nil {
		logger.Errorf("ldap connect: %v", err)
		return nil, fmt.Errorf("connecting to directory: %w", err)
	}
	defer conn.Close()

	if s.cfg.BindDN != "" {
		if err := conn.Bind(s.cfg.BindDN, s.cfg.BindPassword); err != nil {
			logger.Errorf("ldap service bind: %v", err)
			return nil, fmt.Errorf("binding service account: %w", err)
		}
	}

	filter := fmt.Sprintf(s.cfg.UserFilter, ldap.EscapeFilter(username))
	result, err := conn.Search(ldap.NewSearchRequest(
		s.cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter,
		[]string{"dn", "cn", "mail", "memberOf"},
		nil,
	))
	if err != nil {
		return nil, fmt.Errorf("searching directory: %w", err)
	}
	if len(result.Entries) != 1 {
		return nil, errors.New("user not found in directory")
	}
	entry := result.Entries[0]

	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, errors.New("invalid credentials")
	}

	return &LDAPUser{
		Username:    username,
		Email:       entry.GetAttributeValue("mail"),
		DisplayName: entry.GetAttributeValue("cn"),
		IsAdmin:     s.inAdminGroup(entry.GetAttributeValues("memberOf")),
	}, nil
}

func (s *LDAPService) inAdminGroup(groups []string) bool {
	if s.cfg.AdminGroup == "" {
		return false
	}
	want := strings.ToLower("cn=" + s.cfg.AdminGroup + ",")
	for _, dn := range groups {
		if strings.HasPrefix(strings.ToLower(dn), want) {
			return true
		}
	}
	return false
}
