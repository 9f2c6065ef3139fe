package services

import (
	"sort"
	"time"

	"serendipity-backend/domain/core/aggregates"
)

// Community is a detected partition of users
type Community struct {
	Label   string   `json:"label"`
	UserIDs []string `json:"user_ids"`
}

// PathInsight describes the shortest path between two users in the
// user projection graph and how much influence flows along it
type PathInsight struct {
	FromUserID string   `json:"from_user_id"`
	ToUserID   string   `json:"to_user_id"`
	Path       []string `json:"path"`
	Length     int      `json:"length"`
	Influence  float64  `json:"influence"`
}

// GraphMetrics is the full analytics snapshot of the graph
type GraphMetrics struct {
	TotalUsers        int                `json:"total_users"`
	TotalEvents       int                `json:"total_events"`
	TotalConnections  int                `json:"total_connections"`
	DateRangeStart    time.Time          `json:"date_range_start"`
	DateRangeEnd      time.Time          `json:"date_range_end"`
	Centrality        map[string]float64 `json:"centrality"`
	Clustering        map[string]float64 `json:"clustering"`
	AverageClustering float64            `json:"average_clustering"`
	Communities       []Community        `json:"communities"`
	Modularity        float64            `json:"modularity"`
	Paths             []PathInsight      `json:"paths"`
}

// AnalyticsService computes graph metrics over a graph snapshot.
// All metrics are pure functions of the current contents and are
// recomputed on demand rather than incrementally maintained.
type AnalyticsService struct{}

// NewAnalyticsService creates an analytics service
func NewAnalyticsService() *AnalyticsService {
	return &AnalyticsService{}
}

// Calculate computes the full metrics block for the given graph
func (s *AnalyticsService) Calculate(graph *aggregates.Graph) GraphMetrics {
	meta := graph.Metadata()
	metrics := GraphMetrics{
		TotalUsers:       meta.TotalUsers,
		TotalEvents:      meta.TotalEvents,
		TotalConnections: meta.TotalConnections,
		DateRangeStart:   meta.DateRange.Start(),
		DateRangeEnd:     meta.DateRange.End(),
	}

	projection := s.buildUserProjection(graph)
	metrics.Centrality = s.calculateCentrality(graph)
	metrics.Clustering, metrics.AverageClustering = s.calculateClustering(projection)
	metrics.Communities = s.detectCommunities(projection)
	metrics.Modularity = s.calculateModularity(projection, metrics.Communities)
	metrics.Paths = s.analyzePaths(projection, metrics.Centrality)
	return metrics
}

// buildUserProjection projects the event-adjacency graph onto users:
// two users share an edge when any connection links their events
func (s *AnalyticsService) buildUserProjection(graph *aggregates.Graph) map[string]map[string]bool {
	projection := make(map[string]map[string]bool)

	ensure := func(userID string) map[string]bool {
		if projection[userID] == nil {
			projection[userID] = make(map[string]bool)
		}
		return projection[userID]
	}

	for _, userID := range graph.UserIDs() {
		ensure(userID)
	}
	for _, event := range graph.Events() {
		ensure(event.UserID())
	}

	for _, conn := range graph.Connections() {
		from, errFrom := graph.GetEvent(conn.FromEventID())
		to, errTo := graph.GetEvent(conn.ToEventID())
		if errFrom != nil || errTo != nil {
			continue
		}
		if from.UserID() == to.UserID() {
			continue
		}
		ensure(from.UserID())[to.UserID()] = true
		ensure(to.UserID())[from.UserID()] = true
	}

	return projection
}

// calculateCentrality scores each user by the share of all connections
// that touch any of that user's events
func (s *AnalyticsService) calculateCentrality(graph *aggregates.Graph) map[string]float64 {
	owners := make(map[string]string) // event id -> user id
	for _, event := range graph.Events() {
		owners[event.ID()] = event.UserID()
	}

	touching := make(map[string]int)
	for _, conn := range graph.Connections() {
		seen := make(map[string]bool, 2)
		for _, endpoint := range []string{conn.FromEventID(), conn.ToEventID()} {
			if owner, ok := owners[endpoint]; ok && !seen[owner] {
				touching[owner]++
				seen[owner] = true
			}
		}
	}

	total := graph.Metadata().TotalConnections
	if total < 1 {
		total = 1
	}

	centrality := make(map[string]float64)
	for _, userID := range graph.UserIDs() {
		centrality[userID] = float64(touching[userID]) / float64(total)
	}
	for owner := range touching {
		if _, ok := centrality[owner]; !ok {
			centrality[owner] = float64(touching[owner]) / float64(total)
		}
	}
	return centrality
}

// calculateClustering computes the local clustering coefficient of each
// user in the projection graph: the density of edges among its neighbors
func (s *AnalyticsService) calculateClustering(projection map[string]map[string]bool) (map[string]float64, float64) {
	clustering := make(map[string]float64, len(projection))
	sum := 0.0

	for userID, neighbors := range projection {
		k := len(neighbors)
		if k < 2 {
			clustering[userID] = 0
			continue
		}

		links := 0
		ids := make([]string, 0, k)
		for n := range neighbors {
			ids = append(ids, n)
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				if projection[ids[i]][ids[j]] {
					links++
				}
			}
		}

		coefficient := 2 * float64(links) / float64(k*(k-1))
		clustering[userID] = coefficient
		sum += coefficient
	}

	average := 0.0
	if len(projection) > 0 {
		average = sum / float64(len(projection))
	}
	return clustering, average
}

// detectCommunities partitions users via deterministic label propagation:
// each user repeatedly adopts the most frequent label among its neighbors,
// ties broken towards the lexicographically smallest label
func (s *AnalyticsService) detectCommunities(projection map[string]map[string]bool) []Community {
	userIDs := make([]string, 0, len(projection))
	for userID := range projection {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	labels := make(map[string]string, len(userIDs))
	for _, userID := range userIDs {
		labels[userID] = userID
	}

	const maxRounds = 20
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, userID := range userIDs {
			neighbors := projection[userID]
			if len(neighbors) == 0 {
				continue
			}

			counts := make(map[string]int)
			for neighbor := range neighbors {
				counts[labels[neighbor]]++
			}

			best := labels[userID]
			bestCount := 0
			for label, count := range counts {
				if count > bestCount || (count == bestCount && label < best) {
					best = label
					bestCount = count
				}
			}

			if best != labels[userID] {
				labels[userID] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	groups := make(map[string][]string)
	for _, userID := range userIDs {
		groups[labels[userID]] = append(groups[labels[userID]], userID)
	}

	communities := make([]Community, 0, len(groups))
	for label, members := range groups {
		sort.Strings(members)
		communities = append(communities, Community{Label: label, UserIDs: members})
	}
	sort.Slice(communities, func(i, j int) bool { return communities[i].Label < communities[j].Label })
	return communities
}

// calculateModularity computes Newman modularity of the partition over the
// projection graph: sum over communities of e_c/m - (d_c/2m)^2
func (s *AnalyticsService) calculateModularity(projection map[string]map[string]bool, communities []Community) float64 {
	edges := 0
	for userID, neighbors := range projection {
		for neighbor := range neighbors {
			if userID < neighbor {
				edges++
			}
		}
	}
	if edges == 0 {
		return 0
	}

	m := float64(edges)
	modularity := 0.0
	for _, community := range communities {
		members := make(map[string]bool, len(community.UserIDs))
		for _, userID := range community.UserIDs {
			members[userID] = true
		}

		intra := 0
		degreeSum := 0
		for _, userID := range community.UserIDs {
			degreeSum += len(projection[userID])
			for neighbor := range projection[userID] {
				if members[neighbor] && userID < neighbor {
					intra++
				}
			}
		}

		fraction := float64(intra) / m
		expected := float64(degreeSum) / (2 * m)
		modularity += fraction - expected*expected
	}
	return modularity
}

// analyzePaths finds shortest paths between the most central users and
// scores each by the mean centrality along the path
func (s *AnalyticsService) analyzePaths(projection map[string]map[string]bool, centrality map[string]float64) []PathInsight {
	const maxHubs = 5

	hubs := make([]string, 0, len(centrality))
	for userID := range centrality {
		hubs = append(hubs, userID)
	}
	sort.Slice(hubs, func(i, j int) bool {
		if centrality[hubs[i]] != centrality[hubs[j]] {
			return centrality[hubs[i]] > centrality[hubs[j]]
		}
		return hubs[i] < hubs[j]
	})
	if len(hubs) > maxHubs {
		hubs = hubs[:maxHubs]
	}

	var insights []PathInsight
	for i := 0; i < len(hubs); i++ {
		for j := i + 1; j < len(hubs); j++ {
			path := s.shortestPath(projection, hubs[i], hubs[j])
			if path == nil {
				continue
			}

			influence := 0.0
			for _, userID := range path {
				influence += centrality[userID]
			}
			influence /= float64(len(path))

			insights = append(insights, PathInsight{
				FromUserID: hubs[i],
				ToUserID:   hubs[j],
				Path:       path,
				Length:     len(path) - 1,
				Influence:  influence,
			})
		}
	}
	return insights
}

// shortestPath finds a BFS shortest path between two users, or nil when
// they are not connected
func (s *AnalyticsService) shortestPath(projection map[string]map[string]bool, start, end string) []string {
	if start == end {
		return []string{start}
	}

	visited := map[string]bool{start: true}
	parent := make(map[string]string)
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		neighbors := make([]string, 0, len(projection[current]))
		for n := range projection[current] {
			neighbors = append(neighbors, n)
		}
		sort.Strings(neighbors)

		for _, next := range neighbors {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = current
			queue = append(queue, next)

			if next == end {
				path := []string{end}
				for n := end; n != start; n = parent[n] {
					path = append([]string{parent[n]}, path...)
				}
				return path
			}
		}
	}
	return nil
}
