package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/imroc/req/v3"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Credentials struct {
	StorageURL string `yaml:"storageUrl"`
	Token      string `yaml:"token"`
}

// AuthProvider yields the storage endpoint and token a Swift session needs.
type AuthProvider interface {
	Authenticate(ctx context.Context) (Credentials, error)
}

type StaticAuth struct {
	Credentials Credentials
}

func (a StaticAuth) Authenticate(ctx context.Context) (Credentials, error) {
	if a.Credentials.StorageURL == "" || a.Credentials.Token == "" {
		return Credentials{}, errors.New("static credentials need both a storage url and a token")
	}
	return a.Credentials, nil
}

// SwiftAuth implements the Swift v1 auth handshake. When TokenPath is set a
// previously saved token is reused instead of authenticating again.
type SwiftAuth struct {
	AuthURL    string
	User       string
	Key        string
	TokenPath  string
	SaveTokens bool
	client     *req.Client
}

func NewSwiftAuth(pc ProviderConfig) *SwiftAuth {
	return &SwiftAuth{
		AuthURL:    pc.AuthURL,
		User:       pc.User,
		Key:        pc.Key,
		TokenPath:  pc.TokenPath,
		SaveTokens: pc.SaveTokens,
		client:     req.C().SetUserAgent("mirrorsync"),
	}
}

func (a *SwiftAuth) Authenticate(ctx context.Context) (Credentials, error) {
	if a.TokenPath != "" {
		creds, loadErr := loadTokens(a.TokenPath)
		if loadErr == nil {
			log.Debug(fmt.Sprintf("[auth] reusing tokens from %s", a.TokenPath))
			return creds, nil
		}
		if !errors.Is(loadErr, os.ErrNotExist) {
			log.Warn(fmt.Sprintf("[auth] ignoring unreadable token file %s: %s", a.TokenPath, loadErr))
		}
	}

	if a.AuthURL == "" {
		return Credentials{}, errors.New("no auth url configured")
	}
	resp, reqErr := a.client.R().
		SetContext(ctx).
		SetHeader("X-Auth-User", a.User).
		SetHeader("X-Auth-Key", a.Key).
		Get(a.AuthURL)
	if checkErr := checkResponse("AUTH", a.AuthURL, resp, reqErr); checkErr != nil {
		return Credentials{}, checkErr
	}

	creds := Credentials{
		StorageURL: resp.Header.Get("X-Storage-Url"),
		Token:      resp.Header.Get("X-Auth-Token"),
	}
	if creds.StorageURL == "" || creds.Token == "" {
		return Credentials{}, fmt.Errorf("auth response from %s is missing X-Storage-Url or X-Auth-Token", a.AuthURL)
	}
	log.Info("[Login] Session opened")

	if a.SaveTokens && a.TokenPath != "" {
		if saveErr := saveTokens(a.TokenPath, creds); saveErr != nil {
			log.Warn(fmt.Sprintf("[auth] could not save tokens: %s", saveErr))
		}
	}

	return creds, nil
}

func loadTokens(tokenPath string) (Credentials, error) {
	var creds Credentials
	raw, readErr := os.ReadFile(tokenPath)
	if readErr != nil {
		return creds, readErr
	}
	if yamlErr := yaml.Unmarshal(raw, &creds); yamlErr != nil {
		return creds, yamlErr
	}
	if creds.StorageURL == "" || creds.Token == "" {
		return creds, errors.New("token file is incomplete")
	}
	return creds, nil
}

func saveTokens(tokenPath string, creds Credentials) error {
	raw, yamlErr := yaml.Marshal(creds)
	if yamlErr != nil {
		return yamlErr
	}
	return os.WriteFile(tokenPath, raw, 0600)
}
