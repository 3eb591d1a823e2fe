package fabric

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/procuretrust/tender-gateway/internal/config"
	"github.com/procuretrust/tender-gateway/internal/ledger"
)

// SessionFactory opens one gateway connection per request under the
// selected organization's identity. Nothing is cached between requests:
// credential material is read fresh and the connection is torn down when
// the session closes.
type SessionFactory struct {
	cfg config.FabricConfig
	log zerolog.Logger
}

func NewSessionFactory(cfg config.FabricConfig, log zerolog.Logger) *SessionFactory {
	return &SessionFactory{cfg: cfg, log: log}
}

func (f *SessionFactory) Acquire(ctx context.Context, orgID string) (ledger.Session, error) {
	org, ok := f.cfg.Orgs[orgID]
	if !ok {
		return nil, fmt.Errorf("organization %q is not configured", orgID)
	}

	endpoint, err := LoadPeerEndpoint(org.ConnectionProfile)
	if err != nil {
		return nil, err
	}
	material, err := LoadMaterial(org.CredentialDir)
	if err != nil {
		return nil, err
	}

	cert, err := identity.CertificateFromPEM(material.CertificatePEM)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	id, err := identity.NewX509Identity(org.MSPID, cert)
	if err != nil {
		return nil, fmt.Errorf("build identity: %w", err)
	}
	key, err := identity.PrivateKeyFromPEM(material.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	sign, err := identity.NewPrivateKeySign(key)
	if err != nil {
		return nil, fmt.Errorf("build signer: %w", err)
	}

	conn, err := dialPeer(endpoint)
	if err != nil {
		return nil, err
	}

	timeout := f.cfg.RequestTimeout
	gw, err := client.Connect(
		id,
		client.WithSign(sign),
		client.WithClientConnection(conn),
		client.WithEvaluateTimeout(timeout),
		client.WithEndorseTimeout(timeout),
		client.WithSubmitTimeout(timeout),
		client.WithCommitStatusTimeout(2*timeout),
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect gateway: %w", err)
	}

	network := gw.GetNetwork(f.cfg.ChannelName)
	f.log.Debug().Str("org", orgID).Str("channel", f.cfg.ChannelName).Msg("ledger session opened")

	return &session{
		gateway:   gw,
		conn:      conn,
		network:   network,
		chaincode: f.cfg.ChaincodeName,
		contract:  &contract{inner: network.GetContract(f.cfg.ChaincodeName)},
		log:       f.log,
		orgID:     orgID,
	}, nil
}

func dialPeer(endpoint *PeerEndpoint) (*grpc.ClientConn, error) {
	tlsConf := &tls.Config{ServerName: endpoint.ServerNameOverride}
	if len(endpoint.TLSRootCertPEM) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(endpoint.TLSRootCertPEM) {
			return nil, fmt.Errorf("invalid TLS CA certificate for %s", endpoint.Address)
		}
		tlsConf.RootCAs = pool
	}
	conn, err := grpc.NewClient(endpoint.Address, grpc.WithTransportCredentials(credentials.NewTLS(tlsConf)))
	if err != nil {
		return nil, fmt.Errorf("dial peer %s: %w", endpoint.Address, err)
	}
	return conn, nil
}

type session struct {
	gateway   *client.Gateway
	conn      *grpc.ClientConn
	network   *client.Network
	chaincode string
	contract  *contract
	log       zerolog.Logger
	orgID     string
}

func (s *session) Contract() ledger.Contract { return s.contract }

func (s *session) Close() error {
	s.gateway.Close()
	err := s.conn.Close()
	s.log.Debug().Str("org", s.orgID).Msg("ledger session closed")
	return err
}

type contract struct {
	inner *client.Contract
}

func (c *contract) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	result, err := c.inner.EvaluateWithContext(ctx, name, client.WithArguments(args...))
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

func (c *contract) Submit(ctx context.Context, name string, args ...string) ([]byte, error) {
	result, err := c.inner.SubmitWithContext(ctx, name, client.WithArguments(args...))
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

func (c *contract) SubmitWithTransient(ctx context.Context, name string, transient map[string][]byte, args ...string) ([]byte, error) {
	result, err := c.inner.SubmitWithContext(ctx, name,
		client.WithArguments(args...),
		client.WithTransient(transient),
	)
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

// OpenEvents opens a chaincode event stream on a dedicated session. The
// session stays open for the lifetime of the stream; the returned release
// function closes it.
func (f *SessionFactory) OpenEvents(ctx context.Context, orgID string, startBlock uint64) (<-chan ledger.Event, func() error, error) {
	sess, err := f.Acquire(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}
	events, err := sess.(*session).chaincodeEvents(ctx, startBlock)
	if err != nil {
		_ = sess.Close()
		return nil, nil, err
	}
	return events, sess.Close, nil
}

func (s *session) chaincodeEvents(ctx context.Context, startBlock uint64) (<-chan ledger.Event, error) {
	opts := []client.ChaincodeEventsOption{}
	if startBlock > 0 {
		opts = append(opts, client.WithStartBlock(startBlock))
	}
	events, err := s.network.ChaincodeEvents(ctx, s.chaincode, opts...)
	if err != nil {
		return nil, translate(err)
	}

	out := make(chan ledger.Event)
	go func() {
		defer close(out)
		for event := range events {
			select {
			case out <- ledger.Event{
				BlockNumber: event.BlockNumber,
				TxID:        event.TransactionID,
				EventName:   event.EventName,
				Payload:     event.Payload,
			}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var _ ledger.SessionFactory = (*SessionFactory)(nil)
var _ ledger.EventOpener = (*SessionFactory)(nil)
