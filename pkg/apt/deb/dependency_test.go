package deb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDependencyEmpty(t *testing.T) {
	dep, err := ParseDependency("")
	require.NoError(t, err)
	assert.Empty(t, dep.Relations)
}

func TestParseDependencySingleRelation(t *testing.T) {
	dep, err := ParseDependency("libc6 (>= 2.17)")
	require.NoError(t, err)
	require.Len(t, dep.Relations, 1)
	require.Len(t, dep.Relations[0].Alternatives, 1)

	alt := dep.Relations[0].Alternatives[0]
	assert.Equal(t, "libc6", alt.Name)
	require.Len(t, alt.Constraints, 1)
	assert.Equal(t, OpGreaterEqual, alt.Constraints[0].Op)
	assert.Equal(t, "2.17", alt.Constraints[0].Version.String())
}

func TestParseDependencyMultipleRelations(t *testing.T) {
	dep, err := ParseDependency("libc6 (>= 2.17), zlib1g")
	require.NoError(t, err)
	require.Len(t, dep.Relations, 2)
	assert.Equal(t, "libc6", dep.Relations[0].Alternatives[0].Name)
	assert.Equal(t, "zlib1g", dep.Relations[1].Alternatives[0].Name)
}

func TestParseDependencyAlternatives(t *testing.T) {
	dep, err := ParseDependency("libssl1.1 | libssl3")
	require.NoError(t, err)
	require.Len(t, dep.Relations, 1)
	require.Len(t, dep.Relations[0].Alternatives, 2)
	assert.Equal(t, "libssl1.1", dep.Relations[0].Alternatives[0].Name)
	assert.Equal(t, "libssl3", dep.Relations[0].Alternatives[1].Name)
}

func TestParseDependencyArchQualify(t *testing.T) {
	dep, err := ParseDependency("libc6:amd64")
	require.NoError(t, err)
	alt := dep.Relations[0].Alternatives[0]
	assert.Equal(t, "libc6", alt.Name)
	assert.Equal(t, "amd64", alt.ArchQualify)
}

func TestParseDependencyArchFilter(t *testing.T) {
	dep, err := ParseDependency("gcc [amd64 arm64]")
	require.NoError(t, err)
	alt := dep.Relations[0].Alternatives[0]
	require.Len(t, alt.ArchFilters, 1)
	assert.False(t, alt.ArchFilters[0].Negated)
	require.Len(t, alt.ArchFilters[0].Architectures, 2)
}

func TestParseDependencyArchFilterMixedNegationRejected(t *testing.T) {
	_, err := ParseDependency("gcc [amd64 !arm64 i386]")
	assert.Error(t, err)
}

func TestParseDependencyStageFilter(t *testing.T) {
	dep, err := ParseDependency("debhelper <!nocheck>")
	require.NoError(t, err)
	alt := dep.Relations[0].Alternatives[0]
	require.Len(t, alt.Stages, 1)
	assert.True(t, alt.Stages[0].Negated)
	assert.Equal(t, "nocheck", alt.Stages[0].Name)
}

func TestParseDependencyUnterminatedConstraint(t *testing.T) {
	_, err := ParseDependency("libc6 (>= 2.17")
	assert.Error(t, err)
}

func TestParseDependencyEmptyPackageName(t *testing.T) {
	_, err := ParseDependency("(>= 1.0)")
	assert.Error(t, err)
}

func TestDependencyStringRoundTrips(t *testing.T) {
	dep, err := ParseDependency("libc6 (>= 2.17), zlib1g | libz1")
	require.NoError(t, err)
	assert.Equal(t, "libc6 (>= 2.17), zlib1g | libz1", dep.String())
}
