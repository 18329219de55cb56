// Package utils holds small conversion helpers shared across stages:
// identifier parsing and formatting, and percentage math for reports.
package utils
