// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package delivery tracks asynchronous sends to an event bus and reconciles them in the background.

A broker returns a Pending handle for every publish.  Handles are appended to a Tracker,
and a FlushLoop periodically drains the Tracker, waiting out each handle and reporting
whether the record was delivered, rejected by the broker, or cancelled.  Nothing is ever
retried.  Stopping a FlushLoop always performs one last drain, so no tracked delivery is
silently abandoned at a normal shutdown.
*/
package delivery
