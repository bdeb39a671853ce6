// Package site reconciles solar plants between VCOM systems, Yuman sites and
// the sites_mapping table, and provides the site Index used to enrich the
// other entity types.
package site
