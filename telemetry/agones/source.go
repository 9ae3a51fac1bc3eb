package agones

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"discord-server-status/status"

	agonesv1 "agones.dev/agones/pkg/apis/agones/v1"
	agonesclientset "agones.dev/agones/pkg/client/clientset/versioned"
	"github.com/rs/zerolog/log"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Annotations written on the GameServer by the Squad sidecar.
const (
	AnnotationServerName     = "status.squad.dev/server-name"
	AnnotationCurrentLayer   = "status.squad.dev/current-layer"
	AnnotationCurrentLayerID = "status.squad.dev/current-layer-id"
	AnnotationNextLayer      = "status.squad.dev/next-layer"
	AnnotationNextLayerVote  = "status.squad.dev/next-layer-vote"
	AnnotationCurrentMap     = "status.squad.dev/current-map"
)

// Counters tracked through the Agones Counters API.
const (
	CounterPlayers      = "players"
	CounterReserveSlots = "reserve-slots"
	CounterPublicQueue  = "public-queue"
	CounterReserveQueue = "reserve-queue"
)

// Source reads telemetry from a single Agones GameServer.
type Source struct {
	client    agonesclientset.Interface
	namespace string
	name      string
}

func NewSource(client agonesclientset.Interface, namespace, name string) *Source {
	if namespace == "" {
		namespace = "default"
	}
	return &Source{client: client, namespace: namespace, name: name}
}

func (s *Source) Snapshot(ctx context.Context) (status.Snapshot, error) {
	gs, err := s.get(ctx)
	if err != nil {
		return status.Snapshot{}, err
	}
	return SnapshotFromGameServer(gs), nil
}

// CurrentMap re-reads the GameServer and returns the RCON-reported map.
func (s *Source) CurrentMap(ctx context.Context) (string, error) {
	gs, err := s.get(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(gs.ObjectMeta.Annotations[AnnotationCurrentMap]), nil
}

func (s *Source) get(ctx context.Context) (*agonesv1.GameServer, error) {
	gs, err := s.client.AgonesV1().GameServers(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	if err != nil {
		log.Error().Err(err).Str("namespace", s.namespace).Str("gameServerName", s.name).Msg("agones: failed to get GameServer")
		return nil, fmt.Errorf("agones: get GameServer '%s/%s': %w", s.namespace, s.name, err)
	}
	return gs, nil
}

// SnapshotFromGameServer maps counters, player tracking and annotations
// onto a status snapshot.
func SnapshotFromGameServer(gs *agonesv1.GameServer) status.Snapshot {
	ann := gs.ObjectMeta.Annotations
	snap := status.Snapshot{
		ServerName:   firstNonEmpty(strings.TrimSpace(ann[AnnotationServerName]), gs.ObjectMeta.Name),
		ReserveSlots: counterCount(gs, CounterReserveSlots),
		PublicQueue:  counterCount(gs, CounterPublicQueue),
		ReserveQueue: counterCount(gs, CounterReserveQueue),
	}

	if c, ok := gs.Status.Counters[CounterPlayers]; ok {
		snap.PlayerCount = int(c.Count)
		snap.PublicSlots = int(c.Capacity)
	} else if p := gs.Status.Players; p != nil {
		snap.PlayerCount = int(p.Count)
		snap.PublicSlots = int(p.Capacity)
	}

	if name := strings.TrimSpace(ann[AnnotationCurrentLayer]); name != "" {
		snap.CurrentLayer = &status.Layer{Name: name, LayerID: strings.TrimSpace(ann[AnnotationCurrentLayerID])}
	}
	if name := strings.TrimSpace(ann[AnnotationNextLayer]); name != "" {
		snap.NextLayer = &status.Layer{Name: name}
	}
	if v := strings.TrimSpace(ann[AnnotationNextLayerVote]); v != "" {
		vote, err := strconv.ParseBool(v)
		if err != nil {
			log.Warn().Str("gameServerName", gs.ObjectMeta.Name).Str("value", v).Msg("agones: invalid next-layer-vote annotation")
		}
		snap.NextLayerToBeVoted = vote
	}
	return snap
}

func counterCount(gs *agonesv1.GameServer, name string) int {
	c, ok := gs.Status.Counters[name]
	if !ok || c.Count < 0 {
		return 0
	}
	return int(c.Count)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// NewClient returns an Agones typed clientset using in-cluster config or local kubeconfig.
func NewClient() (agonesclientset.Interface, error) {
	// Try in-cluster config first
	if cfg, err := rest.InClusterConfig(); err == nil {
		return agonesclientset.NewForConfig(cfg)
	}
	// Fallback to local kubeconfig
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{})
	cfg, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, err
	}
	return agonesclientset.NewForConfig(cfg)
}
