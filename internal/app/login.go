package app

import (
	"context"

	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/domain"
)

const LoginStoreName = "LoginStore"

type LoginState struct {
	LoginUserInfo *domain.UserProfile `json:"loginUserInfo"`
	LoginStatus   domain.LoginStatus  `json:"loginStatus"`
}

type LoginParams struct {
	SDKAppID int    `json:"sdkAppID" validate:"gt=0"`
	UserID   string `json:"userID" validate:"required,max=32"`
	UserSig  string `json:"userSig" validate:"required"`
}

type SetSelfInfoParams struct {
	UserProfile domain.UserProfile `json:"userProfile"`
}

type LoginService struct {
	*Feature[LoginState]
	onLogout func()
}

func NewLoginService(b *bridge.Client, opts Options) *LoginService {
	f := newFeature(LoginStoreName, ScopeGlobal, func() LoginState {
		return LoginState{LoginStatus: domain.LoginStatusUnlogin}
	}, b, opts)
	s := &LoginService{Feature: f}

	f.handle("loginUserInfo", On(func(st *LoginState, u *domain.UserProfile) { st.LoginUserInfo = u }))
	f.handle("loginStatus", On(func(st *LoginState, v domain.LoginStatus) { st.LoginStatus = v }))

	f.action("login", Bind(s.Login))
	f.action("logout", Bind(func(ctx context.Context, _ struct{}) error { return s.Logout(ctx) }))
	f.action("setSelfInfo", Bind(s.SetSelfInfo))
	return s
}

func (s *LoginService) Login(ctx context.Context, p LoginParams) error {
	_, err := s.call(ctx, "login", p)
	return err
}

// Logout destroys every partition of every store once native confirms.
func (s *LoginService) Logout(ctx context.Context) error {
	if _, err := s.call(ctx, "logout", nil); err != nil {
		return err
	}
	if s.onLogout != nil {
		s.onLogout()
	}
	return nil
}

func (s *LoginService) SetSelfInfo(ctx context.Context, p SetSelfInfoParams) error {
	if err := p.UserProfile.Validate(); err != nil {
		return invalid(err)
	}
	_, err := s.call(ctx, "setSelfInfo", p)
	return err
}

func (s *LoginService) LoggedIn() bool {
	return s.current("").LoginStatus == domain.LoginStatusLogined
}
