// Package equipment reconciles module groups, inverters and PV strings between
// VCOM, Yuman materials and the equipments_mapping table.
//
// Equipment is matched on the VCOM device id. VCOM reports it directly; for
// Yuman materials it is rebuilt during enrichment from the material's category,
// custom fields and site:
//   - inverters use the "Inverter ID (Vcom)" custom field, else the serial number
//   - module groups use MODULES-<system key>
//   - strings and other materials use the serial number, else the name
//
// Materials whose site is not yet linked to a VCOM system cannot be matched and
// are reported as pending.
package equipment
