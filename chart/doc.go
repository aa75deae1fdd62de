// Package chart consumes the Helm chart layout: Chart.yaml metadata,
// values.yaml defaults, templates, helper files, and vendored sub-charts
// (directories or gzipped archives under charts/).
//
// [Discover] walks the tree and assigns each sub-chart an override-document
// prefix derived from its dependency alias. [ComposedValues]
// layers sub-chart defaults under those prefixes, and [ScopeUse] re-roots a
// sub-chart's value uses the same way, so the synthesized schema mirrors
// how the template engine actually resolves .Values.
package chart
