// Package push creates in Yuman what only the mapping store knows: VCOM plants
// with no Yuman site yet, with their plant, module and inverter materials.
//
// It runs after the site and equipment pipelines of a sync and writes the new
// Yuman ids back so the next reconciliation links both sides.
package push
