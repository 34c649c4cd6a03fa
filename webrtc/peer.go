package webrtc

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/sasha-s/go-deadlock"

	"crawl-backend/constants"
	"crawl-backend/models"
	"crawl-backend/protocol"
)

const gatherTimeout = 5 * time.Second

type PeerConnection struct {
	PeerConnection *webrtc.PeerConnection
	DataChannel    *webrtc.DataChannel
	Client         *models.Client
}

// Manager owns the server side of every DataChannel session.
type Manager struct {
	peers  map[string]*PeerConnection
	mutex  deadlock.RWMutex
	config webrtc.Configuration

	// OnMessage receives every inbound DataChannel frame.
	OnMessage func(client *models.Client, data []byte)
	// OnClose runs once the channel or the ICE connection goes away.
	OnClose func(client *models.Client)
}

func NewManager(iceServers []webrtc.ICEServer) *Manager {
	return &Manager{
		peers: make(map[string]*PeerConnection),
		config: webrtc.Configuration{
			ICEServers:         iceServers,
			ICETransportPolicy: webrtc.ICETransportPolicyAll,
		},
	}
}

// ICEServers builds the STUN and optional TURN server list.
func ICEServers(stunURLs []string, turnURL, username, credential string) []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, 2)
	if len(stunURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stunURLs})
	}
	if turnURL != "" {
		servers = append(servers, webrtc.ICEServer{
			URLs: []string{
				turnURL + "?transport=udp",
				turnURL + "?transport=tcp",
			},
			Username:   username,
			Credential: credential,
		})
	}
	return servers
}

func (m *Manager) CreatePeerConnection(client *models.Client) (*PeerConnection, error) {
	peerConnection, err := webrtc.NewPeerConnection(m.config)
	if err != nil {
		return nil, err
	}

	peerConnection.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		log.Printf("ICE Connection State for %s: %s", client.ID, state.String())
		if state == webrtc.ICEConnectionStateDisconnected || state == webrtc.ICEConnectionStateFailed {
			m.closePeer(client)
		}
	})

	dataChannel, err := peerConnection.CreateDataChannel("game", nil)
	if err != nil {
		peerConnection.Close()
		return nil, err
	}

	peer := &PeerConnection{
		PeerConnection: peerConnection,
		DataChannel:    dataChannel,
		Client:         client,
	}

	dataChannel.OnOpen(func() {
		log.Printf("DataChannel opened for client %s", client.ID)
		go peer.writePump()
	})

	dataChannel.OnMessage(func(msg webrtc.DataChannelMessage) {
		if m.OnMessage != nil {
			m.OnMessage(client, msg.Data)
		}
	})

	dataChannel.OnClose(func() {
		log.Printf("DataChannel closed for client %s", client.ID)
		m.closePeer(client)
	})

	dataChannel.OnError(func(err error) {
		log.Printf("DataChannel error for %s: %v", client.ID, err)
	})

	m.mutex.Lock()
	m.peers[client.ID] = peer
	m.mutex.Unlock()

	return peer, nil
}

// Answer applies the client's offer and returns an answer with every local
// candidate already gathered.
func (m *Manager) Answer(ctx context.Context, peer *PeerConnection, offerSDP string) (*webrtc.SessionDescription, error) {
	pc := peer.PeerConnection
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}

	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, gatherTimeout)
	defer cancel()
	select {
	case <-gathered:
	case <-ctx.Done():
		return nil, fmt.Errorf("ice gathering: %w", ctx.Err())
	}
	return pc.LocalDescription(), nil
}

// RemovePeer closes and forgets a peer without notifying OnClose.
func (m *Manager) RemovePeer(clientID string) {
	m.take(clientID)
}

// take forgets a peer and closes its connection. Only the first caller for a
// given id gets ok.
func (m *Manager) take(clientID string) (peer *PeerConnection, ok bool) {
	m.mutex.Lock()
	peer, ok = m.peers[clientID]
	delete(m.peers, clientID)
	m.mutex.Unlock()

	if ok && peer.PeerConnection != nil {
		peer.PeerConnection.Close()
	}
	return peer, ok
}

func (m *Manager) closePeer(client *models.Client) {
	if _, ok := m.take(client.ID); !ok {
		return
	}
	if m.OnClose != nil {
		m.OnClose(client)
	}
}

func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.peers)
}

// Heartbeat pings every DataChannel client each period and closes the ones
// that sent nothing within timeout. It returns when ctx is cancelled.
func (m *Manager) Heartbeat(ctx context.Context, period, timeout time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.sweep(now, timeout)
		}
	}
}

// sweep closes peers silent for longer than timeout and pings the rest.
func (m *Manager) sweep(now time.Time, timeout time.Duration) {
	m.mutex.RLock()
	peers := make([]*PeerConnection, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}
	m.mutex.RUnlock()

	for _, p := range peers {
		if now.Sub(p.Client.LastSeen()) > timeout {
			log.Printf("Client %s missed its heartbeat, closing", p.Client.ID)
			m.closePeer(p.Client)
			continue
		}
		data, err := protocol.CodecFor(p.Client.Codec).Marshal(protocol.Ping{Type: constants.MSG_PING, T: now.UnixMilli()})
		if err == nil {
			p.Client.Enqueue(data)
		}
	}
}

// writePump drains the client's send queue onto the DataChannel until the
// client is closed.
func (p *PeerConnection) writePump() {
	binary := protocol.CodecFor(p.Client.Codec).Binary()
	for {
		select {
		case <-p.Client.Done():
			p.PeerConnection.Close()
			return
		case message := <-p.Client.Send:
			var err error
			if binary {
				err = p.DataChannel.Send(message)
			} else {
				err = p.DataChannel.SendText(string(message))
			}
			if err != nil {
				log.Printf("DataChannel send to %s failed: %v", p.Client.ID, err)
				p.Client.Close()
				return
			}
		}
	}
}
