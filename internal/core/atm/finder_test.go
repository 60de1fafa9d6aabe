package atm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/domain"
)

func TestFindFiltersRadiusAndStatus(t *testing.T) {
	dir := &fakeDirectory{atms: []domain.AtmLocation{
		atmAt("near", "Chase Bank", 500),
		atmAt("far", "Wells Fargo", 12000),
		withStatus(atmAt("closed", "PNC Bank", 300), domain.AtmTempClosed),
	}}
	f := NewFinder(dir, NewClassifier(DefaultKeywords()))

	got, err := f.Find(context.Background(), baseLat, baseLng, 10000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "near", got[0].Atm.ID)
	require.InDelta(t, 500, got[0].DistanceMeters, 5)
	require.True(t, got[0].BankQuality)
}

func TestFindDropsDisallowedVenues(t *testing.T) {
	dir := &fakeDirectory{atms: []domain.AtmLocation{
		atmAt("crypto", "Bitcoin Depot", 100),
		atmAt("dnb", "D & B ATM Services", 150),
		atmAt("mart", "Joe's Mini Mart", 200),
	}}
	f := NewFinder(dir, NewClassifier(DefaultKeywords()))

	got, err := f.Find(context.Background(), baseLat, baseLng, 10000)
	require.NoError(t, err)
	// The plain non-bank mart survives as a fallback; known-bad venues
	// never do.
	require.Len(t, got, 1)
	require.Equal(t, "mart", got[0].Atm.ID)
}

func TestFindSortsByScoreThenDistance(t *testing.T) {
	dir := &fakeDirectory{atms: []domain.AtmLocation{
		atmAt("generic", "Community Bank", 100),
		atmAt("chaseFar", "Chase Bank", 2000),
		atmAt("chaseNear", "Chase Bank", 1000),
	}}
	f := NewFinder(dir, NewClassifier(DefaultKeywords()))

	got, err := f.Find(context.Background(), baseLat, baseLng, 10000)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// chaseNear: 120-20=100, chaseFar: 120-40=80, generic: 60-2=58.
	require.Equal(t, "chaseNear", got[0].Atm.ID)
	require.Equal(t, "chaseFar", got[1].Atm.ID)
	require.Equal(t, "generic", got[2].Atm.ID)
}

func TestFindNearTieBrokenByDistance(t *testing.T) {
	// Two identical brands: scores differ only by the mild distance
	// penalty, within the tie epsilon at 1 m apart.
	dir := &fakeDirectory{atms: []domain.AtmLocation{
		atmAt("b", "Chase Bank", 301),
		atmAt("a", "Chase Bank", 300),
	}}
	f := NewFinder(dir, NewClassifier(DefaultKeywords()))

	got, err := f.Find(context.Background(), baseLat, baseLng, 10000)
	require.NoError(t, err)
	require.Equal(t, "a", got[0].Atm.ID)
}

func TestFindEmptyRadiusIsNotAnError(t *testing.T) {
	dir := &fakeDirectory{}
	f := NewFinder(dir, NewClassifier(DefaultKeywords()))

	got, err := f.Find(context.Background(), baseLat, baseLng, 10000)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFindDirectoryFailureSurfaces(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("connection refused")}
	f := NewFinder(dir, NewClassifier(DefaultKeywords()))

	_, err := f.Find(context.Background(), baseLat, baseLng, 10000)
	require.ErrorIs(t, err, domain.ErrDirectoryUnavailable)
}
