package fabric

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// PeerEndpoint is the subset of a connection profile the gateway needs to
// dial one peer: address, TLS root certificate and the TLS server name the
// peer presents.
type PeerEndpoint struct {
	Address            string
	TLSRootCertPEM     []byte
	ServerNameOverride string
}

type connectionProfile struct {
	Client struct {
		Organization string `json:"organization"`
	} `json:"client"`
	Organizations map[string]struct {
		MSPID string   `json:"mspid"`
		Peers []string `json:"peers"`
	} `json:"organizations"`
	Peers map[string]struct {
		URL        string `json:"url"`
		TLSCACerts struct {
			PEM  string `json:"pem"`
			Path string `json:"path"`
		} `json:"tlsCACerts"`
		GRPCOptions struct {
			SSLTargetNameOverride string `json:"ssl-target-name-override"`
		} `json:"grpcOptions"`
	} `json:"peers"`
}

// LoadPeerEndpoint parses a connection profile JSON document and resolves
// the first peer of the client organization (falling back to the first
// peer defined, in name order).
func LoadPeerEndpoint(path string) (*PeerEndpoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("connection profile not found: %s: %w", path, err)
	}

	var profile connectionProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("parse connection profile %s: %w", path, err)
	}

	peerName := ""
	if org, ok := profile.Organizations[profile.Client.Organization]; ok && len(org.Peers) > 0 {
		peerName = org.Peers[0]
	}
	if peerName == "" {
		names := make([]string, 0, len(profile.Peers))
		for name := range profile.Peers {
			names = append(names, name)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("connection profile %s defines no peers", path)
		}
		sort.Strings(names)
		peerName = names[0]
	}

	peer, ok := profile.Peers[peerName]
	if !ok {
		return nil, fmt.Errorf("connection profile %s: peer %q not defined", path, peerName)
	}

	address := strings.TrimPrefix(strings.TrimPrefix(peer.URL, "grpcs://"), "grpc://")
	if address == "" {
		return nil, fmt.Errorf("connection profile %s: peer %q has no url", path, peerName)
	}

	pem := []byte(peer.TLSCACerts.PEM)
	if len(pem) == 0 && peer.TLSCACerts.Path != "" {
		pem, err = os.ReadFile(peer.TLSCACerts.Path)
		if err != nil {
			return nil, fmt.Errorf("read TLS CA cert %s: %w", peer.TLSCACerts.Path, err)
		}
	}

	override := peer.GRPCOptions.SSLTargetNameOverride
	if override == "" {
		override = peerName
	}

	return &PeerEndpoint{
		Address:            address,
		TLSRootCertPEM:     pem,
		ServerNameOverride: override,
	}, nil
}
